// Package foodclient talks to the external food catalog service.
package foodclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/macrotracker/intake-service/internal/logger"
)

var (
	// ErrFoodNotFound means the catalog has no such food. Never retried:
	// a 404 cannot succeed on retry.
	ErrFoodNotFound = errors.New("food not found")

	// ErrUnavailable means the catalog kept failing after bounded retries.
	ErrUnavailable = errors.New("food service is unavailable")

	// ErrIncompleteBatch means a batch lookup returned fewer foods than
	// requested: a referenced food disappeared from the catalog
	// mid-operation. The whole operation must abort.
	ErrIncompleteBatch = errors.New("food service returned incomplete batch")
)

// API is the lookup contract the services depend on.
type API interface {
	GetFoodByID(ctx context.Context, foodID string) (*Food, error)
	GetFoodsByIDs(ctx context.Context, foodIDs []string) ([]Food, error)
}

// Client is the HTTP implementation of API with bounded fixed-backoff
// retry on transport and 5xx failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	log        *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration, log *logger.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        log,
	}
}

func (c *Client) GetFoodByID(ctx context.Context, foodID string) (*Food, error) {
	c.log.Debug("fetching food", "food_id", foodID)

	var food Food
	url := fmt.Sprintf("%s/api/foods/%s", c.baseURL, foodID)
	if err := c.doWithRetry(ctx, http.MethodGet, url, nil, &food); err != nil {
		return nil, err
	}
	return &food, nil
}

func (c *Client) GetFoodsByIDs(ctx context.Context, foodIDs []string) ([]Food, error) {
	c.log.Debug("fetching foods batch", "count", len(foodIDs))
	if len(foodIDs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(foodIDs)
	if err != nil {
		return nil, err
	}

	var foods []Food
	url := c.baseURL + "/api/foods/batch"
	if err := c.doWithRetry(ctx, http.MethodPost, url, body, &foods); err != nil {
		return nil, err
	}

	if err := validateAllFound(foodIDs, foods); err != nil {
		return nil, err
	}
	return foods, nil
}

// doWithRetry performs the request, retrying every failure except 404
// up to maxRetries times with a fixed delay between attempts.
func (c *Client) doWithRetry(ctx context.Context, method, url string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		err := c.do(ctx, method, url, body, out)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrFoodNotFound) {
			return err
		}
		lastErr = err
		c.log.Warn("food service request failed", "url", url, "attempt", attempt+1, "error", err)
	}

	c.log.Error("food service retries exhausted", "url", url, "error", lastErr)
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrFoodNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("food service returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func validateAllFound(requestedIDs []string, foods []Food) error {
	if len(foods) == len(requestedIDs) {
		return nil
	}

	found := make(map[string]bool, len(foods))
	for _, f := range foods {
		found[f.ID] = true
	}
	var missing []string
	for _, id := range requestedIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}

	return fmt.Errorf("%w: missing ids %s", ErrIncompleteBatch, strings.Join(missing, ", "))
}
