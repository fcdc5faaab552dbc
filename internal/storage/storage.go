package storage

import (
	"context"
	"errors"
	"time"

	"github.com/macrotracker/intake-service/internal/nutrient"
)

// ErrNotFound is returned when a row does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("not found")

// Intake is one consumption event.
type Intake struct {
	ID          int64
	MealGroupID *string // set when the record was created by a template application
	UserID      int64
	FoodID      string
	FoodName    string
	Date        string // YYYY-MM-DD
	Period      string // breakfast|lunch|dinner|snack
	Amount      int
	Unit        nutrient.Unit
	Nutriments  nutrient.Nutriments
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MealTemplate is a named, reusable collection of template items owned
// by one user. Items are cascade-deleted with the template.
type MealTemplate struct {
	ID        int64
	UserID    int64
	Name      string
	Items     []TemplateItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateItem is one food entry inside a template. Nutriments hold
// both per-100g and per-piece reference values plus the scaled totals
// for the item's amount, so unit changes rarely need a re-fetch.
type TemplateItem struct {
	ID         int64
	TemplateID int64
	FoodID     string
	FoodName   string
	Amount     int
	Unit       nutrient.Unit
	Nutriments nutrient.Nutriments
}

// IntakeStorage persists intake records.
type IntakeStorage interface {
	// CreateIntake inserts one record, assigning ID and timestamps.
	CreateIntake(ctx context.Context, intake *Intake) error

	// CreateIntakeBatch inserts all records in one operation. Either all
	// rows persist or none do.
	CreateIntakeBatch(ctx context.Context, intakes []Intake) error

	// GetIntake returns the record by id scoped to the user.
	GetIntake(ctx context.Context, id, userID int64) (*Intake, error)

	// ListIntakes returns one page of records for the user, newest
	// first, plus the total row count for the filter. A nil date means
	// all dates.
	ListIntakes(ctx context.Context, userID int64, date *string, limit, offset int) ([]Intake, int, error)

	// UpdateIntake persists mutable fields (date, period, amount,
	// nutriments) of an existing record.
	UpdateIntake(ctx context.Context, intake *Intake) error

	// DeleteIntake removes the record by id scoped to the user.
	DeleteIntake(ctx context.Context, id, userID int64) error

	// FindFirstByMealGroup returns one record of the batch group scoped
	// to the user, or ErrNotFound.
	FindFirstByMealGroup(ctx context.Context, mealGroupID string, userID int64) (*Intake, error)

	// DeleteByMealGroup removes every record sharing the batch group id
	// and user id in one operation, returning the number deleted.
	DeleteByMealGroup(ctx context.Context, mealGroupID string, userID int64) (int, error)

	// DeleteBatchByUser removes at most batchSize of the user's records
	// and returns how many were removed.
	DeleteBatchByUser(ctx context.Context, userID int64, batchSize int) (int, error)
}

// TemplateStorage persists meal templates with their items.
type TemplateStorage interface {
	// CreateTemplate inserts the template and all its items atomically,
	// assigning IDs.
	CreateTemplate(ctx context.Context, template *MealTemplate) error

	// GetTemplate returns the template with items by id scoped to the user.
	GetTemplate(ctx context.Context, id, userID int64) (*MealTemplate, error)

	// ListTemplates returns all templates with items for the user.
	ListTemplates(ctx context.Context, userID int64) ([]MealTemplate, error)

	// ReplaceTemplate persists the template's name and full item set as
	// one unit, replacing the stored items.
	ReplaceTemplate(ctx context.Context, template *MealTemplate) error

	// DeleteTemplate removes the template and its items.
	DeleteTemplate(ctx context.Context, id, userID int64) error
}
