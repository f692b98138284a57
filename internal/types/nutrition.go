package types

import "math"

// Kilocalories per gram of each macro
const (
	KcalPerGramProtein = 4.0
	KcalPerGramCarbs   = 4.0
	KcalPerGramFat     = 9.0
)

// Macro identifies one of the three macronutrients
type Macro int

const (
	Protein Macro = iota
	Carbs
	Fat
)

// Macros lists the macros in their canonical order
var Macros = []Macro{Protein, Carbs, Fat}

func (m Macro) String() string {
	switch m {
	case Protein:
		return "protein"
	case Carbs:
		return "carbs"
	case Fat:
		return "fat"
	default:
		return "unknown"
	}
}

// KcalPerGram returns the energy density of the macro
func (m Macro) KcalPerGram() float64 {
	if m == Fat {
		return KcalPerGramFat
	}
	return KcalPerGramProtein
}

// NutrientProfile holds calories and macro grams per 100g of a food.
// Grams scale linearly: macro_grams = value * grams / 100.
type NutrientProfile struct {
	Calories float64 `json:"calories_per_100g" yaml:"calories"`
	Protein  float64 `json:"protein_per_100g" yaml:"protein"`
	Carbs    float64 `json:"carbs_per_100g" yaml:"carbs"`
	Fat      float64 `json:"fat_per_100g" yaml:"fat"`
}

// Macro returns the grams per 100g for a single macro
func (p NutrientProfile) Macro(m Macro) float64 {
	switch m {
	case Protein:
		return p.Protein
	case Carbs:
		return p.Carbs
	case Fat:
		return p.Fat
	default:
		return 0
	}
}

// IsZero reports whether the profile carries no nutrition at all (placeholder foods)
func (p NutrientProfile) IsZero() bool {
	return p.Calories == 0 && p.Protein == 0 && p.Carbs == 0 && p.Fat == 0
}

// Valid reports whether every value is finite and non-negative
func (p NutrientProfile) Valid() bool {
	for _, v := range []float64{p.Calories, p.Protein, p.Carbs, p.Fat} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// MacroSplit is the desired share of calories per macro, in percent
type MacroSplit struct {
	Protein float64 `json:"protein_percent" yaml:"protein"`
	Carbs   float64 `json:"carbs_percent" yaml:"carbs"`
	Fat     float64 `json:"fat_percent" yaml:"fat"`
}

// Percent returns the share for a single macro
func (s MacroSplit) Percent(m Macro) float64 {
	switch m {
	case Protein:
		return s.Protein
	case Carbs:
		return s.Carbs
	case Fat:
		return s.Fat
	default:
		return 0
	}
}

// Sum returns the total of the three percentages
func (s MacroSplit) Sum() float64 {
	return s.Protein + s.Carbs + s.Fat
}

// MacroTargets are the exact daily targets derived for one planning session
type MacroTargets struct {
	Calories        float64    `json:"calories"`
	ProteinGrams    float64    `json:"protein_grams"`
	CarbsGrams      float64    `json:"carbs_grams"`
	FatGrams        float64    `json:"fat_grams"`
	ProteinCalories float64    `json:"protein_calories"`
	CarbsCalories   float64    `json:"carbs_calories"`
	FatCalories     float64    `json:"fat_calories"`
	Split           MacroSplit `json:"split"`
}

// Grams returns the gram target for a single macro
func (t MacroTargets) Grams(m Macro) float64 {
	switch m {
	case Protein:
		return t.ProteinGrams
	case Carbs:
		return t.CarbsGrams
	case Fat:
		return t.FatGrams
	default:
		return 0
	}
}
