package intakes

import (
	"context"
	"errors"
	"time"

	"github.com/macrotracker/intake-service/internal/cache"
	"github.com/macrotracker/intake-service/internal/dedup"
	"github.com/macrotracker/intake-service/internal/foodclient"
	"github.com/macrotracker/intake-service/internal/logger"
	"github.com/macrotracker/intake-service/internal/nutrient"
	"github.com/macrotracker/intake-service/internal/storage"
)

const (
	DefaultPeriod   = "snack"
	DefaultPageSize = 20
)

var (
	ErrInvalidAmount = errors.New("amount must be at least 1")
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidPeriod = errors.New("period must be one of breakfast, lunch, dinner, snack")
)

var validPeriods = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

type Service struct {
	storage         storage.IntakeStorage
	foods           foodclient.API
	dedup           *dedup.Store
	cache           *cache.Cache
	log             *logger.Logger
	pageSize        int
	deleteBatchSize int
}

func NewService(
	intakeStorage storage.IntakeStorage,
	foods foodclient.API,
	dedupStore *dedup.Store,
	c *cache.Cache,
	log *logger.Logger,
	pageSize int,
	deleteBatchSize int,
) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if deleteBatchSize <= 0 {
		deleteBatchSize = 1000
	}
	return &Service{
		storage:         intakeStorage,
		foods:           foods,
		dedup:           dedupStore,
		cache:           c,
		log:             log,
		pageSize:        pageSize,
		deleteBatchSize: deleteBatchSize,
	}
}

// Save records one intake. When requestID was already processed for this
// user the call is a no-op and returns (nil, nil); the handler reports the
// duplicate to the client. The dedup key is marked only after the record
// is committed, so a crash in between leads to a retry, never a lost write.
func (s *Service) Save(ctx context.Context, userID int64, requestID string, req *CreateIntakeRequest) (*IntakeDTO, error) {
	if req.Amount < 1 {
		return nil, ErrInvalidAmount
	}
	if err := ValidateDate(req.Date); err != nil {
		return nil, err
	}
	period, err := NormalizePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	unit := nutrient.ParseUnit(req.Unit)

	if requestID != "" {
		processed, err := s.dedup.IsProcessed(ctx, dedup.EntityIntake, requestID, userID)
		if err != nil {
			return nil, err
		}
		if processed {
			s.log.Info("duplicate intake request ignored", "user_id", userID, "request_id", requestID)
			return nil, nil
		}
	}

	food, err := s.foods.GetFoodByID(ctx, req.FoodID)
	if err != nil {
		return nil, err
	}
	if !nutrient.UnitSupported(food.AvailableUnits, unit) {
		return nil, nutrient.UnsupportedUnitError(food.ProductName, unit, food.AvailableUnits)
	}

	record := &storage.Intake{
		UserID:     userID,
		FoodID:     food.ID,
		FoodName:   food.ProductName,
		Date:       req.Date,
		Period:     period,
		Amount:     req.Amount,
		Unit:       unit,
		Nutriments: nutrient.Scale(food.Reference(), req.Amount, unit),
	}
	if err := s.storage.CreateIntake(ctx, record); err != nil {
		return nil, err
	}

	// Post-commit steps. Eviction and marking may fail independently of
	// the committed row; both log instead of failing the request.
	s.cache.InvalidateIntakeDate(ctx, userID, record.Date)
	if requestID != "" {
		s.dedup.MarkProcessed(ctx, dedup.EntityIntake, requestID, userID)
	}

	return ToDTO(record), nil
}

// FindByDate returns one page of the user's intakes, newest first. A nil
// date lists across all dates. Pages are served from cache when present.
func (s *Service) FindByDate(ctx context.Context, userID int64, date *string, page int) (*PagedResponse, error) {
	if date != nil {
		if err := ValidateDate(*date); err != nil {
			return nil, err
		}
	}
	if page < 0 {
		page = 0
	}

	var cached PagedResponse
	if s.cache.GetIntakePage(ctx, userID, date, page, &cached) {
		return &cached, nil
	}

	offset := page * s.pageSize
	records, total, err := s.storage.ListIntakes(ctx, userID, date, s.pageSize, offset)
	if err != nil {
		return nil, err
	}

	resp := &PagedResponse{
		Data: make([]IntakeDTO, len(records)),
		Pagination: Pagination{
			Offset: offset,
			Limit:  s.pageSize,
			Total:  total,
		},
	}
	for i := range records {
		resp.Data[i] = *ToDTO(&records[i])
	}

	s.cache.SetIntakePage(ctx, userID, date, page, resp)
	return resp, nil
}

// Update applies a partial update to the user's own intake. When amount
// changes, totals are recomputed from the per-unit values stored on the
// row, without calling the food service again.
func (s *Service) Update(ctx context.Context, userID, id int64, req *UpdateIntakeRequest) (*IntakeDTO, error) {
	record, err := s.storage.GetIntake(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	oldDate := record.Date

	if req.Amount != nil {
		if *req.Amount < 1 {
			return nil, ErrInvalidAmount
		}
		if *req.Amount != record.Amount {
			record.Amount = *req.Amount
			record.Nutriments = nutrient.Rescale(record.Nutriments, record.Amount, record.Unit)
		}
	}
	if req.Date != nil {
		if err := ValidateDate(*req.Date); err != nil {
			return nil, err
		}
		record.Date = *req.Date
	}
	if req.Period != nil {
		period, err := NormalizePeriod(*req.Period)
		if err != nil {
			return nil, err
		}
		record.Period = period
	}

	if err := s.storage.UpdateIntake(ctx, record); err != nil {
		return nil, err
	}

	s.cache.InvalidateIntakeDate(ctx, userID, oldDate)
	if record.Date != oldDate {
		s.cache.InvalidateIntakeDate(ctx, userID, record.Date)
	}

	return ToDTO(record), nil
}

// DeleteByID removes the user's own intake. Deleting a record that does
// not exist (or belongs to someone else) is a no-op.
func (s *Service) DeleteByID(ctx context.Context, userID, id int64) error {
	record, err := s.storage.GetIntake(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.storage.DeleteIntake(ctx, id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	s.cache.InvalidateIntakeDate(ctx, userID, record.Date)
	return nil
}

// DeleteUserBatch deletes up to one batch of the user's intakes and
// reports how many rows went away. Callers loop until the count drops
// below the batch size.
func (s *Service) DeleteUserBatch(ctx context.Context, userID int64) (int, error) {
	deleted, err := s.storage.DeleteBatchByUser(ctx, userID, s.deleteBatchSize)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.cache.InvalidateIntakeUser(ctx, userID)
	}
	return deleted, nil
}

// BatchSize is the per-pass limit used by DeleteUserBatch.
func (s *Service) BatchSize() int {
	return s.deleteBatchSize
}

// ValidateDate checks the YYYY-MM-DD format.
func ValidateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func NormalizePeriod(period string) (string, error) {
	if period == "" {
		return DefaultPeriod, nil
	}
	if !validPeriods[period] {
		return "", ErrInvalidPeriod
	}
	return period, nil
}
