package foodclient

import "github.com/macrotracker/intake-service/internal/nutrient"

// Food is the catalog's reference record for one product.
type Food struct {
	ID             string         `json:"id"`
	Code           string         `json:"code"`
	ProductName    string         `json:"productName"`
	GenericName    string         `json:"genericName"`
	ImageURL       string         `json:"imageUrl"`
	Brands         string         `json:"brands"`
	AvailableUnits []string       `json:"availableUnits"`
	Nutriments     FoodNutriments `json:"nutriments"`
}

// FoodNutriments is the catalog's wire shape: plain names are per-100g
// reference values, the *PerPiece fields are per one piece.
type FoodNutriments struct {
	Calories      float64 `json:"calories"`
	Fat           float64 `json:"fat"`
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`

	CaloriesPerPiece      float64 `json:"caloriesPerPiece"`
	FatPerPiece           float64 `json:"fatPerPiece"`
	ProteinPerPiece       float64 `json:"proteinPerPiece"`
	CarbohydratesPerPiece float64 `json:"carbohydratesPerPiece"`
}

// Reference converts the wire shape into the engine's per-unit form
// with zeroed scaled totals.
func (f Food) Reference() nutrient.Nutriments {
	return nutrient.Nutriments{
		CaloriesPer100: f.Nutriments.Calories,
		CarbsPer100:    f.Nutriments.Carbohydrates,
		FatPer100:      f.Nutriments.Fat,
		ProteinPer100:  f.Nutriments.Protein,

		CaloriesPerPiece: f.Nutriments.CaloriesPerPiece,
		CarbsPerPiece:    f.Nutriments.CarbohydratesPerPiece,
		FatPerPiece:      f.Nutriments.FatPerPiece,
		ProteinPerPiece:  f.Nutriments.ProteinPerPiece,
	}
}
