package meals

import (
	"time"

	"github.com/macrotracker/intake-service/internal/intakes"
	"github.com/macrotracker/intake-service/internal/nutrient"
	"github.com/macrotracker/intake-service/internal/storage"
)

// TemplateItemInput is one food entry in a create/update request.
type TemplateItemInput struct {
	FoodID string `json:"foodId"`
	Amount int    `json:"amount"`
	Unit   string `json:"unit,omitempty"`
}

// TemplateRequest is the body of POST /api/meals and PUT /api/meals/{id}.
// An update replaces the stored item set with the one given here.
type TemplateRequest struct {
	Name  string              `json:"name"`
	Items []TemplateItemInput `json:"items"`
}

// TemplateItemDTO is the wire representation of one template item.
type TemplateItemDTO struct {
	ID         int64               `json:"id"`
	FoodID     string              `json:"foodId"`
	FoodName   string              `json:"foodName"`
	Amount     int                 `json:"amount"`
	Unit       string              `json:"unit"`
	Nutriments nutrient.Nutriments `json:"nutriments"`
}

// TemplateDTO is the wire representation of a meal template.
type TemplateDTO struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Items     []TemplateItemDTO `json:"items"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// TemplatesResponse wraps the user's template list.
type TemplatesResponse struct {
	Templates []TemplateDTO `json:"templates"`
}

// ApplyResponse reports the intakes created from one template
// application. MealGroupID ties them together for a later revert.
type ApplyResponse struct {
	MealGroupID string              `json:"mealGroupId"`
	Intakes     []intakes.IntakeDTO `json:"intakes"`
}

// RevertResponse reports how many records a revert removed.
type RevertResponse struct {
	Deleted int `json:"deleted"`
}

func toTemplateDTO(t *storage.MealTemplate) *TemplateDTO {
	dto := &TemplateDTO{
		ID:        t.ID,
		Name:      t.Name,
		Items:     make([]TemplateItemDTO, len(t.Items)),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	for i, item := range t.Items {
		dto.Items[i] = TemplateItemDTO{
			ID:         item.ID,
			FoodID:     item.FoodID,
			FoodName:   item.FoodName,
			Amount:     item.Amount,
			Unit:       string(item.Unit),
			Nutriments: item.Nutriments,
		}
	}
	return dto
}
