package nutrition

import (
	"math"
	"strings"
)

// Health-metric thresholds, inclusive, in the units the upstream record uses.
const (
	lowFatMax      = 3
	lowSodiumMax   = 140
	highFiberMin   = 5
	lowCalorieMax  = 40
	highProteinMin = 5

	highSodiumHighlight = 400
	lowSodiumHighlight  = 140
	highFatHighlight    = 15
)

// commonAllergens are scanned against the ingredients text, in this order.
var commonAllergens = []string{
	"milk", "dairy", "egg", "peanut", "tree nut", "soy", "wheat",
	"gluten", "fish", "shellfish", "sesame",
}

// commonAdditives are scanned against the ingredients text, in this order.
var commonAdditives = []string{
	"aspartame", "sucralose", "saccharin", "high fructose", "msg",
	"monosodium glutamate", "artificial", "preservative", "benzoate",
	"nitrite", "nitrate", "bht", "bha", "red dye", "yellow dye", "blue dye",
}

// Analyze derives health metrics, macronutrient percentages, ingredient flags
// and highlights from a normalized record. Pure function of its inputs.
func Analyze(record FoodRecord, signals NutrientSignals) AnalysisResult {
	result := AnalysisResult{
		HealthMetrics: map[string]bool{
			"is_low_fat":      signals.Fat != nil && *signals.Fat <= lowFatMax,
			"is_low_sodium":   signals.Sodium != nil && *signals.Sodium <= lowSodiumMax,
			"is_high_fiber":   signals.Fiber != nil && *signals.Fiber >= highFiberMin,
			"is_low_calorie":  signals.Calories != nil && *signals.Calories <= lowCalorieMax,
			"is_high_protein": signals.Protein != nil && *signals.Protein >= highProteinMin,
		},
		NutritionalProfile: map[string]float64{},
		KeyHighlights:      []string{},
		Additives:          []string{},
		Allergens:          []string{},
	}

	if record.Ingredients != "" {
		ingredients := strings.ToLower(record.Ingredients)
		for _, allergen := range commonAllergens {
			if strings.Contains(ingredients, allergen) {
				result.Allergens = append(result.Allergens, allergen)
			}
		}
		for _, additive := range commonAdditives {
			if strings.Contains(ingredients, additive) {
				result.Additives = append(result.Additives, additive)
			}
		}
	}

	if signals.Calories != nil {
		result.NutritionalProfile["calories_per_serving"] = *signals.Calories
	}

	// Calorie-share percentages: fat at 9 kcal/g, protein and carbs at
	// 4 kcal/g. Rounded half away from zero to one decimal place.
	if signals.Calories != nil && *signals.Calories > 0 {
		calories := *signals.Calories
		if signals.Fat != nil {
			result.NutritionalProfile["fat_calories_percent"] = round1(*signals.Fat * 9 / calories * 100)
		}
		if signals.Protein != nil {
			result.NutritionalProfile["protein_calories_percent"] = round1(*signals.Protein * 4 / calories * 100)
		}
		if signals.Carbs != nil {
			result.NutritionalProfile["carbs_calories_percent"] = round1(*signals.Carbs * 4 / calories * 100)
		}
	}

	result.KeyHighlights = highlights(signals, result.Additives, result.Allergens)

	return result
}

// highlights emits the highlight strings in their fixed evaluation order. The
// sodium and fat pairs are mutually exclusive; everything else is
// independent.
func highlights(signals NutrientSignals, additives, allergens []string) []string {
	out := []string{}

	if signals.Calories != nil && *signals.Calories == 0 {
		out = append(out, "Zero calories")
	}

	if signals.Sodium != nil && *signals.Sodium > highSodiumHighlight {
		out = append(out, "High sodium content")
	} else if signals.Sodium != nil && *signals.Sodium < lowSodiumHighlight {
		out = append(out, "Low sodium")
	}

	if signals.Fiber != nil && *signals.Fiber >= highFiberMin {
		out = append(out, "Good source of fiber")
	}

	if signals.Protein != nil && *signals.Protein >= highProteinMin {
		out = append(out, "Good source of protein")
	}

	if signals.Fat != nil && *signals.Fat <= lowFatMax {
		out = append(out, "Low fat")
	} else if signals.Fat != nil && *signals.Fat >= highFatHighlight {
		out = append(out, "High fat content")
	}

	if len(additives) > 0 {
		out = append(out, "Contains artificial additives")
	}

	if len(allergens) > 0 {
		out = append(out, "Contains allergens: "+strings.Join(allergens, ", "))
	}

	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
