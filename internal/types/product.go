package types

import (
	"math"
	"strconv"
	"strings"
)

// Product is the subset of an Open Food Facts record needed to derive a NutrientProfile.
// Records from the parquet dataset carry nutriments as a list, records from the
// search API carry them as a flat map keyed by "<nutrient>_100g".
type Product struct {
	Code          string         `json:"code"`
	ProductName   string         `json:"product_name"`
	Brands        string         `json:"brands,omitempty"`
	NutrimentList []Nutriment    `json:"-"`
	Nutriments    map[string]any `json:"nutriments,omitempty"`
}

// Nutriment is one entry of the parquet nutriments list
type Nutriment struct {
	Name    string   `json:"name"`
	Per100g *float64 `json:"100g"`
	Unit    *string  `json:"unit"`
	Value   *float64 `json:"value"`
}

// plausibility bounds for per-100g values
const (
	maxKcalPer100g  = 900
	maxGramsPer100g = 100
	kjPerKcal       = 4.184
)

// Profile converts the product nutriments into a NutrientProfile.
// ok is false when any of the four values is missing or implausible.
func (p *Product) Profile() (NutrientProfile, bool) {
	kcal, ok := p.per100g("energy-kcal")
	if !ok {
		kj, kjOK := p.per100g("energy-kj")
		if !kjOK {
			kj, kjOK = p.per100g("energy")
		}
		if !kjOK {
			return NutrientProfile{}, false
		}
		kcal = kj / kjPerKcal
	}
	protein, ok1 := p.per100g("proteins")
	carbs, ok2 := p.per100g("carbohydrates")
	fat, ok3 := p.per100g("fat")
	if !ok1 || !ok2 || !ok3 {
		return NutrientProfile{}, false
	}

	if kcal < 0 || kcal > maxKcalPer100g {
		return NutrientProfile{}, false
	}
	for _, g := range []float64{protein, carbs, fat} {
		if g < 0 || g > maxGramsPer100g {
			return NutrientProfile{}, false
		}
	}

	return NutrientProfile{Calories: kcal, Protein: protein, Carbs: carbs, Fat: fat}, true
}

func (p *Product) per100g(name string) (float64, bool) {
	for _, n := range p.NutrimentList {
		if n.Name == name && n.Per100g != nil && !math.IsNaN(*n.Per100g) {
			return *n.Per100g, true
		}
	}
	if p.Nutriments != nil {
		if v, ok := toFloat(p.Nutriments[name+"_100g"]); ok {
			return v, true
		}
	}
	return 0, false
}

// toFloat coerces a decoded JSON value to float64
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
