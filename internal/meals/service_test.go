package meals

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/macrotracker/intake-service/internal/cache"
	"github.com/macrotracker/intake-service/internal/foodclient"
	"github.com/macrotracker/intake-service/internal/kv"
	"github.com/macrotracker/intake-service/internal/logger"
	"github.com/macrotracker/intake-service/internal/nutrient"
	"github.com/macrotracker/intake-service/internal/storage"
	"github.com/macrotracker/intake-service/internal/storage/memory"
)

type fakeFoodAPI struct {
	foods      map[string]foodclient.Food
	batchCalls int
	batchedIDs [][]string
}

func (f *fakeFoodAPI) GetFoodByID(ctx context.Context, foodID string) (*foodclient.Food, error) {
	food, ok := f.foods[foodID]
	if !ok {
		return nil, foodclient.ErrFoodNotFound
	}
	return &food, nil
}

func (f *fakeFoodAPI) GetFoodsByIDs(ctx context.Context, foodIDs []string) ([]foodclient.Food, error) {
	f.batchCalls++
	f.batchedIDs = append(f.batchedIDs, foodIDs)

	var result []foodclient.Food
	var missing []string
	for _, id := range foodIDs {
		if food, ok := f.foods[id]; ok {
			result = append(result, food)
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing ids %s", foodclient.ErrIncompleteBatch, strings.Join(missing, ", "))
	}
	return result, nil
}

func massFood(id, name string, calories float64) foodclient.Food {
	return foodclient.Food{
		ID:             id,
		ProductName:    name,
		AvailableUnits: []string{"grams"},
		Nutriments:     foodclient.FoodNutriments{Calories: calories, Protein: 10},
	}
}

func newTestService(t *testing.T) (*Service, *fakeFoodAPI, storage.IntakeStorage) {
	t.Helper()

	log := logger.NewNop()
	store := memory.New()
	foods := &fakeFoodAPI{foods: map[string]foodclient.Food{
		"rice":     massFood("rice", "White Rice", 130),
		"chicken":  massFood("chicken", "Chicken Breast", 165),
		"broccoli": massFood("broccoli", "Broccoli", 34),
		"egg": {
			ID:             "egg",
			ProductName:    "Chicken Egg",
			AvailableUnits: []string{"grams", "pieces"},
			Nutriments: foodclient.FoodNutriments{
				Calories:         155,
				CaloriesPerPiece: 78,
			},
		},
	}}

	svc := NewService(
		store.GetTemplateStorage(),
		store.GetIntakeStorage(),
		foods,
		cache.New(kv.NewMemoryStore(), 0, log),
		log,
	)
	return svc, foods, store.GetIntakeStorage()
}

func createTemplate(t *testing.T, svc *Service, userID int64, name string, items ...TemplateItemInput) *TemplateDTO {
	t.Helper()
	template, err := svc.CreateTemplate(context.Background(), userID, &TemplateRequest{Name: name, Items: items})
	if err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	return template
}

func TestCreateTemplate(t *testing.T) {
	svc, foods, _ := newTestService(t)

	template := createTemplate(t, svc, 1, "lunch bowl",
		TemplateItemInput{FoodID: "rice", Amount: 150},
		TemplateItemInput{FoodID: "chicken", Amount: 120},
	)

	if len(template.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(template.Items))
	}
	if template.Items[0].Nutriments.Calories != 195 {
		t.Errorf("expected 195 kcal for 150g rice, got %v", template.Items[0].Nutriments.Calories)
	}
	if template.Items[0].FoodName != "White Rice" {
		t.Errorf("expected snapshotted name, got %q", template.Items[0].FoodName)
	}
	if foods.batchCalls != 1 {
		t.Errorf("expected one batch lookup, got %d", foods.batchCalls)
	}
}

func TestCreateTemplateDuplicateFoodFirstWins(t *testing.T) {
	svc, _, _ := newTestService(t)

	template := createTemplate(t, svc, 1, "doubled",
		TemplateItemInput{FoodID: "rice", Amount: 100},
		TemplateItemInput{FoodID: "rice", Amount: 999},
	)

	if len(template.Items) != 1 {
		t.Fatalf("expected duplicate food collapsed to 1 item, got %d", len(template.Items))
	}
	if template.Items[0].Amount != 100 {
		t.Errorf("expected first occurrence to win, got amount %d", template.Items[0].Amount)
	}
}

func TestCreateTemplateUnknownFood(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateTemplate(context.Background(), 1, &TemplateRequest{
		Name:  "broken",
		Items: []TemplateItemInput{{FoodID: "nope", Amount: 100}},
	})
	if !errors.Is(err, foodclient.ErrIncompleteBatch) {
		t.Fatalf("expected incomplete batch error, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "nope") {
		t.Errorf("error should name the missing id: %v", err)
	}
}

func TestCreateTemplateUnsupportedUnit(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateTemplate(context.Background(), 1, &TemplateRequest{
		Name:  "pieces of rice",
		Items: []TemplateItemInput{{FoodID: "rice", Amount: 2, Unit: "pieces"}},
	})

	var unitErr *nutrient.UnsupportedUnit
	if !errors.As(err, &unitErr) {
		t.Fatalf("expected unsupported unit error, got %v", err)
	}
	if !strings.Contains(err.Error(), "White Rice") {
		t.Errorf("error should name the food: %v", err)
	}
}

func TestUpdateTemplateReconciliation(t *testing.T) {
	svc, foods, _ := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "bowl",
		TemplateItemInput{FoodID: "rice", Amount: 100},
		TemplateItemInput{FoodID: "chicken", Amount: 50},
	)
	callsAfterCreate := foods.batchCalls

	// Keep rice unchanged, drop chicken, add broccoli.
	updated, err := svc.UpdateTemplate(ctx, 1, template.ID, &TemplateRequest{
		Name: "green bowl",
		Items: []TemplateItemInput{
			{FoodID: "rice", Amount: 100},
			{FoodID: "broccoli", Amount: 80},
		},
	})
	if err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}

	if updated.Name != "green bowl" {
		t.Errorf("expected renamed template, got %q", updated.Name)
	}
	var ids []string
	for _, item := range updated.Items {
		ids = append(ids, item.FoodID)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "broccoli" || ids[1] != "rice" {
		t.Fatalf("expected items [broccoli rice], got %v", ids)
	}

	// Only the new food may hit the catalog, in a single batch.
	if foods.batchCalls != callsAfterCreate+1 {
		t.Fatalf("expected exactly one extra batch call, got %d", foods.batchCalls-callsAfterCreate)
	}
	lastBatch := foods.batchedIDs[len(foods.batchedIDs)-1]
	if len(lastBatch) != 1 || lastBatch[0] != "broccoli" {
		t.Errorf("expected only the new food fetched, got %v", lastBatch)
	}
}

func TestUpdateTemplateAmountOnlySkipsCatalog(t *testing.T) {
	svc, foods, _ := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "bowl",
		TemplateItemInput{FoodID: "rice", Amount: 100},
	)
	callsAfterCreate := foods.batchCalls

	updated, err := svc.UpdateTemplate(ctx, 1, template.ID, &TemplateRequest{
		Name:  "bowl",
		Items: []TemplateItemInput{{FoodID: "rice", Amount: 200}},
	})
	if err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}

	if foods.batchCalls != callsAfterCreate {
		t.Errorf("amount-only update must not call the catalog, got %d extra calls", foods.batchCalls-callsAfterCreate)
	}
	if updated.Items[0].Nutriments.Calories != 260 {
		t.Errorf("expected rescaled 260 kcal for 200g, got %v", updated.Items[0].Nutriments.Calories)
	}
}

func TestUpdateTemplateUnitChangeRefetches(t *testing.T) {
	svc, foods, _ := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "eggs",
		TemplateItemInput{FoodID: "egg", Amount: 100, Unit: "grams"},
	)
	callsAfterCreate := foods.batchCalls

	updated, err := svc.UpdateTemplate(ctx, 1, template.ID, &TemplateRequest{
		Name:  "eggs",
		Items: []TemplateItemInput{{FoodID: "egg", Amount: 2, Unit: "pieces"}},
	})
	if err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}

	if foods.batchCalls != callsAfterCreate+1 {
		t.Errorf("unit change must revalidate against the catalog")
	}
	if updated.Items[0].Unit != "pieces" {
		t.Errorf("expected unit pieces, got %q", updated.Items[0].Unit)
	}
	if updated.Items[0].Nutriments.Calories != 156 {
		t.Errorf("expected 156 kcal for 2 pieces, got %v", updated.Items[0].Nutriments.Calories)
	}
}

func TestUpdateTemplateNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateTemplate(context.Background(), 1, 999, &TemplateRequest{
		Name:  "ghost",
		Items: []TemplateItemInput{{FoodID: "rice", Amount: 100}},
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGetTemplatesCached(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createTemplate(t, svc, 1, "bowl", TemplateItemInput{FoodID: "rice", Amount: 100})

	first, err := svc.GetTemplates(ctx, 1)
	if err != nil {
		t.Fatalf("GetTemplates failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 template, got %d", len(first))
	}

	// A mutation must be visible through the cache.
	createTemplate(t, svc, 1, "dinner", TemplateItemInput{FoodID: "chicken", Amount: 150})
	second, err := svc.GetTemplates(ctx, 1)
	if err != nil {
		t.Fatalf("GetTemplates failed: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("listing after create must reflect the write, got %d", len(second))
	}
}

func TestApplyAndRevert(t *testing.T) {
	svc, _, intakeStore := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "bowl",
		TemplateItemInput{FoodID: "rice", Amount: 150},
		TemplateItemInput{FoodID: "chicken", Amount: 120},
	)

	applied, err := svc.ApplyTemplate(ctx, 1, template.ID, "2026-08-30", "lunch")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	if applied.MealGroupID == "" {
		t.Fatal("expected a meal group id")
	}
	if len(applied.Intakes) != 2 {
		t.Fatalf("expected 2 intakes, got %d", len(applied.Intakes))
	}
	for _, in := range applied.Intakes {
		if in.MealGroupID == nil || *in.MealGroupID != applied.MealGroupID {
			t.Errorf("intake %d missing shared group id", in.ID)
		}
		if in.Period != "lunch" {
			t.Errorf("expected period lunch, got %q", in.Period)
		}
	}

	deleted, err := svc.RevertIntakeGroup(ctx, 1, applied.MealGroupID)
	if err != nil {
		t.Fatalf("RevertIntakeGroup failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	_, total, err := intakeStore.ListIntakes(ctx, 1, nil, 10, 0)
	if err != nil {
		t.Fatalf("ListIntakes failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected all applied intakes gone, got %d", total)
	}
}

func TestApplyDistinctGroupIDs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "bowl", TemplateItemInput{FoodID: "rice", Amount: 100})

	first, err := svc.ApplyTemplate(ctx, 1, template.ID, "2026-08-30", "")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	second, err := svc.ApplyTemplate(ctx, 1, template.ID, "2026-08-30", "")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}
	if first.MealGroupID == second.MealGroupID {
		t.Error("each application must get its own group id")
	}
	if first.Intakes[0].Period != "snack" {
		t.Errorf("expected default period snack, got %q", first.Intakes[0].Period)
	}
}

func TestRevertForeignGroup(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "bowl", TemplateItemInput{FoodID: "rice", Amount: 100})
	applied, err := svc.ApplyTemplate(ctx, 1, template.ID, "2026-08-30", "")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}

	deleted, err := svc.RevertIntakeGroup(ctx, 2, applied.MealGroupID)
	if err != nil {
		t.Fatalf("RevertIntakeGroup failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("another user's group must match zero rows, got %d", deleted)
	}

	// Owner's records must be untouched by the foreign attempt.
	deleted, err = svc.RevertIntakeGroup(ctx, 1, applied.MealGroupID)
	if err != nil {
		t.Fatalf("RevertIntakeGroup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted for the owner, got %d", deleted)
	}
}

func TestRevertTwiceIsSilent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "bowl", TemplateItemInput{FoodID: "rice", Amount: 100})
	applied, err := svc.ApplyTemplate(ctx, 1, template.ID, "2026-08-30", "")
	if err != nil {
		t.Fatalf("ApplyTemplate failed: %v", err)
	}

	if _, err := svc.RevertIntakeGroup(ctx, 1, applied.MealGroupID); err != nil {
		t.Fatalf("RevertIntakeGroup failed: %v", err)
	}
	deleted, err := svc.RevertIntakeGroup(ctx, 1, applied.MealGroupID)
	if err != nil {
		t.Fatalf("retried revert must not error, got %v", err)
	}
	if deleted != 0 {
		t.Errorf("retried revert must match zero rows, got %d", deleted)
	}
}

func TestDeleteTemplate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	template := createTemplate(t, svc, 1, "bowl", TemplateItemInput{FoodID: "rice", Amount: 100})

	if err := svc.DeleteTemplate(ctx, 1, template.ID); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if err := svc.DeleteTemplate(ctx, 1, template.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}

	templates, err := svc.GetTemplates(ctx, 1)
	if err != nil {
		t.Fatalf("GetTemplates failed: %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("expected empty listing, got %d", len(templates))
	}
}
