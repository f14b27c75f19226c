package nutrition

import (
	"encoding/json"
	"strings"
)

// categoryKeywords maps each category to its membership keyword list. A
// nutrient belongs to the first category whose list contains its name as a
// substring; unmatched entries land in "other".
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{CategoryMacronutrients, []string{"Protein", "Total lipid (fat)", "Carbohydrate, by difference"}},
	{CategoryVitamins, []string{"Vitamin A", "Vitamin C", "Vitamin D", "Vitamin E", "Vitamin K",
		"Thiamin", "Riboflavin", "Niacin", "Vitamin B-6", "Folate", "Vitamin B-12"}},
	{CategoryMinerals, []string{"Calcium", "Iron", "Magnesium", "Phosphorus", "Potassium", "Sodium", "Zinc",
		"Copper", "Selenium"}},
	{CategoryOther, []string{"Fiber, total dietary", "Total Sugars", "Cholesterol",
		"Fatty acids, total saturated", "Fatty acids, total trans"}},
}

// rawFood is the subset of the upstream payload Normalize cares about. Extra
// fields are ignored; missing fields decode to zero values.
type rawFood struct {
	Description      string            `json:"description"`
	BrandOwner       string            `json:"brandOwner"`
	BrandName        string            `json:"brandName"`
	FdcID            *int64            `json:"fdcId"`
	GtinUpc          string            `json:"gtinUpc"`
	FoodCategory     flexibleString    `json:"foodCategory"`
	BrandedCategory  flexibleString    `json:"brandedFoodCategory"`
	Ingredients      string            `json:"ingredients"`
	ServingSize      *float64          `json:"servingSize"`
	ServingSizeUnit  string            `json:"servingSizeUnit"`
	HouseholdServing string            `json:"householdServingFullText"`
	PublishedDate    string            `json:"publishedDate"`
	PublicationDate  string            `json:"publicationDate"`
	MarketCountry    string            `json:"marketCountry"`
	AvailableDate    string            `json:"availableDate"`
	DiscontinuedDate string            `json:"discontinuedDate"`
	LabelNutrients   map[string]*struct {
		Value *float64 `json:"value"`
	} `json:"labelNutrients"`
	FoodNutrients []json.RawMessage `json:"foodNutrients"`
}

// flexibleString decodes a field that upstream serves either as a plain
// string or as an object carrying a description.
type flexibleString string

func (f *flexibleString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleString(s)
		return nil
	}
	var obj struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*f = flexibleString(obj.Description)
		return nil
	}
	// Tolerate any other shape as absent.
	*f = ""
	return nil
}

// legacyNutrient is the flat upstream nutrient shape.
type legacyNutrient struct {
	NutrientName      string   `json:"nutrientName"`
	Value             *float64 `json:"value"`
	UnitName          string   `json:"unitName"`
	PercentDailyValue *float64 `json:"percentDailyValue"`
}

// nestedNutrient is the newer shape with a nested nutrient object and no
// daily-value field.
type nestedNutrient struct {
	Nutrient *struct {
		Name     string `json:"name"`
		UnitName string `json:"unitName"`
	} `json:"nutrient"`
	Amount *float64 `json:"amount"`
}

// decodeNutrientEntry sniffs which of the two known shapes an entry uses and
// returns the canonical form. ok is false when the entry carries neither
// shape, has an empty name, or has no amount.
func decodeNutrientEntry(raw json.RawMessage) (NutrientEntry, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return NutrientEntry{}, false
	}

	var entry NutrientEntry
	switch {
	case hasKey(keys, "nutrientName"):
		var n legacyNutrient
		if err := json.Unmarshal(raw, &n); err != nil {
			return NutrientEntry{}, false
		}
		if n.Value == nil {
			return NutrientEntry{}, false
		}
		entry = NutrientEntry{
			Name:              n.NutrientName,
			Amount:            *n.Value,
			Unit:              n.UnitName,
			DailyValuePercent: n.PercentDailyValue,
		}
	case hasKey(keys, "nutrient"):
		var n nestedNutrient
		if err := json.Unmarshal(raw, &n); err != nil || n.Nutrient == nil || n.Amount == nil {
			return NutrientEntry{}, false
		}
		entry = NutrientEntry{
			Name:   n.Nutrient.Name,
			Amount: *n.Amount,
			Unit:   n.Nutrient.UnitName,
		}
	default:
		return NutrientEntry{}, false
	}

	if entry.Name == "" {
		return NutrientEntry{}, false
	}
	return entry, true
}

func hasKey(keys map[string]json.RawMessage, key string) bool {
	_, ok := keys[key]
	return ok
}

// Normalize maps a raw upstream nutrition record to the canonical FoodRecord,
// NutrientSignals and NutrientCategories. It never fails on missing or
// malformed nutrient sub-structures; a record lacking both nutrient sources
// yields all-absent signals and empty categories.
func Normalize(raw []byte) (FoodRecord, NutrientSignals, NutrientCategories) {
	var food rawFood
	// Malformed payloads degrade to an all-defaults record.
	_ = json.Unmarshal(raw, &food)

	record := FoodRecord{
		Name:             food.Description,
		Brand:            food.BrandOwner,
		ID:               food.FdcID,
		UPC:              food.GtinUpc,
		Category:         string(food.FoodCategory),
		Ingredients:      food.Ingredients,
		ServingSize:      food.ServingSize,
		ServingUnit:      food.ServingSizeUnit,
		HouseholdServing: food.HouseholdServing,
		PublishedDate:    food.PublishedDate,
		MarketCountry:    food.MarketCountry,
		AvailableDate:    food.AvailableDate,
		DiscontinuedDate: food.DiscontinuedDate,
	}
	if record.Name == "" {
		record.Name = "Unknown Food"
	}
	if record.Brand == "" {
		record.Brand = food.BrandName
	}
	if record.Brand == "" {
		record.Brand = "Unknown Brand"
	}
	if record.Category == "" {
		record.Category = string(food.BrandedCategory)
	}
	if record.PublishedDate == "" {
		record.PublishedDate = food.PublicationDate
	}

	var signals NutrientSignals

	// The label-nutrient block seeds a subset of slots first; the entry list
	// below is processed afterwards and overwrites any slot it touches.
	if food.LabelNutrients != nil {
		if v := labelValue(food.LabelNutrients, "calories"); v != nil {
			signals.Calories = v
			record.Calories = v
		}
		if v := labelValue(food.LabelNutrients, "fat"); v != nil {
			signals.Fat = v
		}
		if v := labelValue(food.LabelNutrients, "sodium"); v != nil {
			signals.Sodium = v
		}
		if v := labelValue(food.LabelNutrients, "protein"); v != nil {
			signals.Protein = v
		}
		if v := labelValue(food.LabelNutrients, "carbohydrates"); v != nil {
			signals.Carbs = v
		}
	}

	categories := NutrientCategories{
		CategoryMacronutrients: {},
		CategoryVitamins:       {},
		CategoryMinerals:       {},
		CategoryOther:          {},
	}

	for _, rawEntry := range food.FoodNutrients {
		entry, ok := decodeNutrientEntry(rawEntry)
		if !ok {
			continue
		}

		extractSignal(entry, &signals, &record)
		categories[categoryFor(entry.Name)] = append(categories[categoryFor(entry.Name)], entry)
	}

	return record, signals, categories
}

// labelValue reads one slot of the label-nutrient block, tolerating null
// sub-objects and missing values.
func labelValue(label map[string]*struct {
	Value *float64 `json:"value"`
}, key string) *float64 {
	entry, ok := label[key]
	if !ok || entry == nil || entry.Value == nil {
		return nil
	}
	v := *entry.Value
	return &v
}

// extractSignal assigns entry to its signal slot. Rules are evaluated in a
// fixed priority order; the first match wins for this entry, and a later
// entry matching the same rule overwrites the slot.
func extractSignal(entry NutrientEntry, signals *NutrientSignals, record *FoodRecord) {
	amount := entry.Amount
	name := entry.Name

	switch {
	case name == "Energy":
		signals.Calories = &amount
		record.Calories = &amount
	case strings.Contains(name, "Total lipid (fat)"):
		signals.Fat = &amount
	case strings.Contains(name, "Sodium"):
		signals.Sodium = &amount
	case strings.Contains(name, "Fiber, total dietary"):
		signals.Fiber = &amount
	case name == "Protein":
		signals.Protein = &amount
	case strings.Contains(name, "Carbohydrate"):
		signals.Carbs = &amount
	case strings.Contains(name, "Total Sugars"):
		signals.Sugars = &amount
	case strings.Contains(name, "Cholesterol"):
		signals.Cholesterol = &amount
	case strings.Contains(strings.ToLower(name), "saturated"):
		signals.SaturatedFat = &amount
	case strings.Contains(strings.ToLower(name), "trans"):
		signals.TransFat = &amount
	}
}

// categoryFor returns the first category whose keyword list contains name as
// a substring, falling back to "other".
func categoryFor(name string) string {
	for _, category := range categoryKeywords {
		for _, keyword := range category.keywords {
			if strings.Contains(name, keyword) {
				return category.name
			}
		}
	}
	return CategoryOther
}

// Process normalizes and analyzes a raw record in one step.
func Process(raw []byte) ProcessedFood {
	record, signals, categories := Normalize(raw)
	return ProcessedFood{
		BasicInfo: record,
		Nutrients: categories,
		Analysis:  Analyze(record, signals),
	}
}
