package intakes

import (
	"time"

	"github.com/macrotracker/intake-service/internal/nutrient"
	"github.com/macrotracker/intake-service/internal/storage"
)

// CreateIntakeRequest is the body of POST /api/intake.
type CreateIntakeRequest struct {
	FoodID string `json:"foodId"`
	Amount int    `json:"amount"`
	Date   string `json:"date"`
	Period string `json:"period,omitempty"`
	Unit   string `json:"unit,omitempty"`
}

// UpdateIntakeRequest is the body of PATCH /api/intake/{id}. Nil fields are left unchanged.
type UpdateIntakeRequest struct {
	Amount *int    `json:"amount,omitempty"`
	Date   *string `json:"date,omitempty"`
	Period *string `json:"period,omitempty"`
}

// IntakeDTO is the wire representation of a single intake record.
type IntakeDTO struct {
	ID          int64               `json:"id"`
	FoodID      string              `json:"foodId"`
	FoodName    string              `json:"foodName"`
	MealGroupID *string             `json:"mealGroupId,omitempty"`
	Date        string              `json:"date"`
	Period      string              `json:"period"`
	Amount      int                 `json:"amount"`
	Unit        string              `json:"unit"`
	Nutriments  nutrient.Nutriments `json:"nutriments"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// Pagination describes the window a page was cut from.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// PagedResponse is a page of intake records. This is also the shape stored in the cache.
type PagedResponse struct {
	Data       []IntakeDTO `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// DuplicateResponse is returned when the same request is delivered again.
type DuplicateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func ToDTO(in *storage.Intake) *IntakeDTO {
	return &IntakeDTO{
		ID:          in.ID,
		FoodID:      in.FoodID,
		FoodName:    in.FoodName,
		MealGroupID: in.MealGroupID,
		Date:        in.Date,
		Period:      in.Period,
		Amount:      in.Amount,
		Unit:        string(in.Unit),
		Nutriments:  in.Nutriments,
		CreatedAt:   in.CreatedAt,
	}
}
