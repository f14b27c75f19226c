package nutrition

// FoodRecord is the canonical basic-info block produced by Normalize.
// Immutable once constructed.
type FoodRecord struct {
	Name             string   `json:"name"`
	Brand            string   `json:"brand"`
	ID               *int64   `json:"id"`
	UPC              string   `json:"upc"`
	Category         string   `json:"category"`
	Ingredients      string   `json:"ingredients"`
	ServingSize      *float64 `json:"serving_size"`
	ServingUnit      string   `json:"serving_unit"`
	HouseholdServing string   `json:"household_serving"`
	Calories         *float64 `json:"calories"`
	PublishedDate    string   `json:"published_date"`
	MarketCountry    string   `json:"market_country"`
	AvailableDate    string   `json:"available_date"`
	DiscontinuedDate string   `json:"discontinued_date"`
}

// NutrientEntry is one normalized nutrient row.
type NutrientEntry struct {
	Name              string   `json:"name"`
	Amount            float64  `json:"amount"`
	Unit              string   `json:"unit"`
	DailyValuePercent *float64 `json:"daily_value_percent"`
}

// Category names, in evaluation order.
const (
	CategoryMacronutrients = "macronutrients"
	CategoryVitamins       = "vitamins"
	CategoryMinerals       = "minerals"
	CategoryOther          = "other"
)

// NutrientCategories groups normalized entries by category. All four category
// keys are always present; insertion order within a category follows source
// order.
type NutrientCategories map[string][]NutrientEntry

// NutrientSignals are the fixed scalar slots consumed by Analyze. Each slot
// holds at most one value; later extraction rules overwrite earlier ones.
type NutrientSignals struct {
	Calories     *float64
	Fat          *float64
	Sodium       *float64
	Fiber        *float64
	Protein      *float64
	Carbs        *float64
	Sugars       *float64
	Cholesterol  *float64
	SaturatedFat *float64
	TransFat     *float64
}

// AnalysisResult carries derived health signals. Never mutated after
// construction.
type AnalysisResult struct {
	HealthMetrics      map[string]bool    `json:"health_metrics"`
	NutritionalProfile map[string]float64 `json:"nutritional_profile"`
	KeyHighlights      []string           `json:"key_highlights"`
	Additives          []string           `json:"additives"`
	Allergens          []string           `json:"allergens"`
}

// ProcessedFood is the full analyzable profile returned by the API.
type ProcessedFood struct {
	BasicInfo FoodRecord         `json:"basic_info"`
	Nutrients NutrientCategories `json:"nutrients"`
	Analysis  AnalysisResult     `json:"analysis"`
}
