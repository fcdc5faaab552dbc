// Package nutrient converts reference nutrition values into
// consumed-amount nutrition. All functions are pure.
package nutrient

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the kind of amount an intake is measured in.
type Unit string

const (
	// UnitGrams means the amount is a mass in grams and reference
	// values are expressed per 100 g.
	UnitGrams Unit = "grams"
	// UnitPieces means the amount is a number of discrete pieces and
	// reference values are expressed per piece.
	UnitPieces Unit = "pieces"
)

// ParseUnit normalizes a unit string. Unknown or empty values fall
// back to grams, matching the historical default.
func ParseUnit(s string) Unit {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitPieces:
		return UnitPieces
	default:
		return UnitGrams
	}
}

// Nutriments carries both the per-reference-unit values and the values
// scaled to the consumed amount. Per-unit values are kept on every
// record so that amount edits never require re-fetching the food.
type Nutriments struct {
	CaloriesPer100 float64 `json:"caloriesPer100"`
	CarbsPer100    float64 `json:"carbohydratesPer100"`
	FatPer100      float64 `json:"fatPer100"`
	ProteinPer100  float64 `json:"proteinPer100"`

	CaloriesPerPiece float64 `json:"caloriesPerPiece"`
	CarbsPerPiece    float64 `json:"carbohydratesPerPiece"`
	FatPerPiece      float64 `json:"fatPerPiece"`
	ProteinPerPiece  float64 `json:"proteinPerPiece"`

	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbohydrates"`
	Fat      float64 `json:"fat"`
	Protein  float64 `json:"protein"`
}

// Scale fills the scaled totals of ref for the given amount and unit,
// keeping the per-unit values intact. Used at intake-creation and
// template-item-creation time.
func Scale(ref Nutriments, amount int, unit Unit) Nutriments {
	n := ref
	switch unit {
	case UnitPieces:
		n.Calories = perPiece(ref.CaloriesPerPiece, amount)
		n.Carbs = perPiece(ref.CarbsPerPiece, amount)
		n.Fat = perPiece(ref.FatPerPiece, amount)
		n.Protein = perPiece(ref.ProteinPerPiece, amount)
	default:
		n.Calories = per100(ref.CaloriesPer100, amount)
		n.Carbs = per100(ref.CarbsPer100, amount)
		n.Fat = per100(ref.FatPer100, amount)
		n.Protein = per100(ref.ProteinPer100, amount)
	}
	return n
}

// Rescale recomputes the scaled totals from the per-unit values
// already embedded in n. Used when only the amount changes, so no
// food lookup is needed.
func Rescale(n Nutriments, newAmount int, unit Unit) Nutriments {
	return Scale(n, newAmount, unit)
}

// per100 scales a per-100g reference value to a mass amount.
func per100(ref float64, amount int) float64 {
	return round2(ref * float64(amount) / 100)
}

// perPiece scales a per-piece reference value to a piece count.
func perPiece(ref float64, amount int) float64 {
	return round2(ref * float64(amount))
}

// round2 rounds half-up to 2 decimal places. The small epsilon keeps
// values like 16.665, which binary floats store just below the true
// midpoint, from rounding down.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5+1e-9) / 100
}

// UnitSupported reports whether the food's available unit set contains
// the requested unit.
func UnitSupported(available []string, unit Unit) bool {
	for _, a := range available {
		if ParseUnit(a) == unit {
			return true
		}
	}
	return false
}

// UnsupportedUnit is returned when a food does not carry reference
// values for the requested unit. The message names the food and its
// supported set so the client can correct the request.
type UnsupportedUnit struct {
	Food      string
	Requested Unit
	Available []string
}

func (e *UnsupportedUnit) Error() string {
	return fmt.Sprintf("food '%s' does not support unit type %s, available types: %s",
		e.Food, e.Requested, strings.Join(e.Available, ", "))
}

// UnsupportedUnitError builds the validation error for a unit the food
// does not support.
func UnsupportedUnitError(foodName string, requested Unit, available []string) error {
	return &UnsupportedUnit{Food: foodName, Requested: requested, Available: available}
}
