package meals

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/macrotracker/intake-service/internal/cache"
	"github.com/macrotracker/intake-service/internal/foodclient"
	"github.com/macrotracker/intake-service/internal/intakes"
	"github.com/macrotracker/intake-service/internal/logger"
	"github.com/macrotracker/intake-service/internal/nutrient"
	"github.com/macrotracker/intake-service/internal/storage"
)

var (
	ErrNameRequired  = errors.New("template name is required")
	ErrItemsRequired = errors.New("template must contain at least one item")
	ErrItemFoodID    = errors.New("item foodId is required")
	ErrInvalidAmount = errors.New("item amount must be at least 1")
	ErrEmptyGroupID  = errors.New("meal group id is required")
)

type Service struct {
	templates storage.TemplateStorage
	intakes   storage.IntakeStorage
	foods     foodclient.API
	cache     *cache.Cache
	log       *logger.Logger
}

func NewService(
	templateStorage storage.TemplateStorage,
	intakeStorage storage.IntakeStorage,
	foods foodclient.API,
	c *cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		templates: templateStorage,
		intakes:   intakeStorage,
		foods:     foods,
		cache:     c,
		log:       log,
	}
}

// GetTemplates returns all of the user's templates, from cache when warm.
func (s *Service) GetTemplates(ctx context.Context, userID int64) ([]TemplateDTO, error) {
	var cached []TemplateDTO
	if s.cache.GetTemplates(ctx, userID, &cached) {
		return cached, nil
	}

	list, err := s.templates.ListTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	dtos := make([]TemplateDTO, len(list))
	for i := range list {
		dtos[i] = *toTemplateDTO(&list[i])
	}

	s.cache.SetTemplates(ctx, userID, dtos)
	return dtos, nil
}

// CreateTemplate validates every item against the food catalog in one
// batch call, snapshots reference values onto the items, and persists
// the template with all items atomically.
func (s *Service) CreateTemplate(ctx context.Context, userID int64, req *TemplateRequest) (*TemplateDTO, error) {
	inputs, err := normalizeInputs(req)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(inputs))
	for i, in := range inputs {
		ids[i] = in.FoodID
	}
	foods, err := s.fetchFoods(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]storage.TemplateItem, len(inputs))
	for i, in := range inputs {
		item, err := buildItem(foods[in.FoodID], in)
		if err != nil {
			return nil, err
		}
		items[i] = *item
	}

	template := &storage.MealTemplate{
		UserID: userID,
		Name:   req.Name,
		Items:  items,
	}
	if err := s.templates.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}

	s.cache.InvalidateTemplates(ctx, userID)
	return toTemplateDTO(template), nil
}

// UpdateTemplate reconciles the stored item set against the request.
// Items absent from the request are removed, kept items are rescaled
// from their stored per-unit values, and only genuinely new items and
// items whose unit changed are fetched from the catalog, in one batch.
func (s *Service) UpdateTemplate(ctx context.Context, userID, id int64, req *TemplateRequest) (*TemplateDTO, error) {
	existing, err := s.templates.GetTemplate(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	inputs, err := normalizeInputs(req)
	if err != nil {
		return nil, err
	}

	current := make(map[string]*storage.TemplateItem, len(existing.Items))
	for i := range existing.Items {
		current[existing.Items[i].FoodID] = &existing.Items[i]
	}

	var toFetch []string
	for _, in := range inputs {
		cur, ok := current[in.FoodID]
		if !ok || cur.Unit != nutrient.ParseUnit(in.Unit) {
			toFetch = append(toFetch, in.FoodID)
		}
	}

	fetched := map[string]foodclient.Food{}
	if len(toFetch) > 0 {
		fetched, err = s.fetchFoods(ctx, toFetch)
		if err != nil {
			return nil, err
		}
	}

	items := make([]storage.TemplateItem, len(inputs))
	for i, in := range inputs {
		if food, ok := fetched[in.FoodID]; ok {
			item, err := buildItem(food, in)
			if err != nil {
				return nil, err
			}
			items[i] = *item
			continue
		}
		// Known food, same unit: reuse the stored snapshot.
		cur := current[in.FoodID]
		item := *cur
		item.Amount = in.Amount
		if in.Amount != cur.Amount {
			item.Nutriments = nutrient.Rescale(cur.Nutriments, in.Amount, cur.Unit)
		}
		items[i] = item
	}

	existing.Name = req.Name
	existing.Items = items
	if err := s.templates.ReplaceTemplate(ctx, existing); err != nil {
		return nil, err
	}

	s.cache.InvalidateTemplates(ctx, userID)
	return toTemplateDTO(existing), nil
}

// DeleteTemplate removes the template and its items.
func (s *Service) DeleteTemplate(ctx context.Context, userID, id int64) error {
	if err := s.templates.DeleteTemplate(ctx, id, userID); err != nil {
		return err
	}
	s.cache.InvalidateTemplates(ctx, userID)
	return nil
}

// ApplyTemplate instantiates every template item as an intake record on
// the given date. All records share a fresh meal group id and are
// inserted in one batch, so an application can be reverted as a unit.
func (s *Service) ApplyTemplate(ctx context.Context, userID, templateID int64, date, period string) (*ApplyResponse, error) {
	if err := intakes.ValidateDate(date); err != nil {
		return nil, err
	}
	period, err := intakes.NormalizePeriod(period)
	if err != nil {
		return nil, err
	}

	template, err := s.templates.GetTemplate(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New().String()
	records := make([]storage.Intake, len(template.Items))
	for i, item := range template.Items {
		records[i] = storage.Intake{
			MealGroupID: &groupID,
			UserID:      userID,
			FoodID:      item.FoodID,
			FoodName:    item.FoodName,
			Date:        date,
			Period:      period,
			Amount:      item.Amount,
			Unit:        item.Unit,
			Nutriments:  item.Nutriments,
		}
	}
	if err := s.intakes.CreateIntakeBatch(ctx, records); err != nil {
		return nil, err
	}

	s.cache.InvalidateIntakeDate(ctx, userID, date)

	resp := &ApplyResponse{
		MealGroupID: groupID,
		Intakes:     make([]intakes.IntakeDTO, len(records)),
	}
	for i := range records {
		resp.Intakes[i] = *intakes.ToDTO(&records[i])
	}
	return resp, nil
}

// RevertIntakeGroup deletes every intake created by one template
// application. One record is looked up first so the affected date's
// cache partition can be evicted. An unknown or foreign group id
// matches zero rows, which makes retries of an already-reverted
// group harmless.
func (s *Service) RevertIntakeGroup(ctx context.Context, userID int64, groupID string) (int, error) {
	if groupID == "" {
		return 0, ErrEmptyGroupID
	}
	representative, err := s.intakes.FindFirstByMealGroup(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	deleted, err := s.intakes.DeleteByMealGroup(ctx, groupID, userID)
	if err != nil {
		return 0, err
	}

	s.cache.InvalidateIntakeDate(ctx, userID, representative.Date)
	return deleted, nil
}

func (s *Service) fetchFoods(ctx context.Context, ids []string) (map[string]foodclient.Food, error) {
	foods, err := s.foods.GetFoodsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]foodclient.Food, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}
	return byID, nil
}

func buildItem(food foodclient.Food, in TemplateItemInput) (*storage.TemplateItem, error) {
	unit := nutrient.ParseUnit(in.Unit)
	if !nutrient.UnitSupported(food.AvailableUnits, unit) {
		return nil, nutrient.UnsupportedUnitError(food.ProductName, unit, food.AvailableUnits)
	}
	return &storage.TemplateItem{
		FoodID:     food.ID,
		FoodName:   food.ProductName,
		Amount:     in.Amount,
		Unit:       unit,
		Nutriments: nutrient.Scale(food.Reference(), in.Amount, unit),
	}, nil
}

// normalizeInputs validates the request and drops repeated food ids,
// keeping the first occurrence.
func normalizeInputs(req *TemplateRequest) ([]TemplateItemInput, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrItemsRequired
	}

	seen := make(map[string]bool, len(req.Items))
	out := make([]TemplateItemInput, 0, len(req.Items))
	for _, in := range req.Items {
		if in.FoodID == "" {
			return nil, ErrItemFoodID
		}
		if in.Amount < 1 {
			return nil, ErrInvalidAmount
		}
		if seen[in.FoodID] {
			continue
		}
		seen[in.FoodID] = true
		out = append(out, in)
	}
	return out, nil
}
