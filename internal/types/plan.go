package types

// FoodPortion is a quantity of one food inside a meal.
// Alternatives are presentation-only substitutes and never count towards totals.
type FoodPortion struct {
	Name          string          `json:"name"`
	Profile       NutrientProfile `json:"profile"`
	QuantityGrams float64         `json:"quantity_grams"`
	IsAlternative bool            `json:"is_alternative,omitempty"`
	Placeholder   bool            `json:"placeholder,omitempty"`
	Source        string          `json:"source,omitempty"`
	Reasoning     string          `json:"reasoning,omitempty"`
}

// Counted reports whether the portion contributes to aggregate totals
func (f FoodPortion) Counted() bool {
	return !f.IsAlternative
}

// Calories returns the unrounded calories of the portion
func (f FoodPortion) Calories() float64 {
	return f.Profile.Calories * f.QuantityGrams / 100
}

// MacroGrams returns the unrounded grams of a macro in the portion
func (f FoodPortion) MacroGrams(m Macro) float64 {
	return f.Profile.Macro(m) * f.QuantityGrams / 100
}

// Meal is an ordered list of portions with a display name
type Meal struct {
	Name  string        `json:"name"`
	Foods []FoodPortion `json:"foods"`
}

// Plan is a full day of meals
type Plan struct {
	Meals []Meal `json:"meals"`
}

// Clone returns a deep copy so correction routines can work on a scratch plan
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := &Plan{Meals: make([]Meal, len(p.Meals))}
	for i, meal := range p.Meals {
		out.Meals[i] = Meal{Name: meal.Name, Foods: append([]FoodPortion(nil), meal.Foods...)}
	}
	return out
}

// CountedPortions returns pointers to every non-alternative portion in plan order
func (p *Plan) CountedPortions() []*FoodPortion {
	var out []*FoodPortion
	for i := range p.Meals {
		for j := range p.Meals[i].Foods {
			if p.Meals[i].Foods[j].Counted() {
				out = append(out, &p.Meals[i].Foods[j])
			}
		}
	}
	return out
}

// Totals are the aggregate calories and macros of a plan
type Totals struct {
	Calories       float64 `json:"calories"`
	Protein        float64 `json:"protein"`
	Carbs          float64 `json:"carbs"`
	Fat            float64 `json:"fat"`
	ProteinPercent float64 `json:"protein_percent"`
	CarbsPercent   float64 `json:"carbs_percent"`
	FatPercent     float64 `json:"fat_percent"`
}

// Grams returns the total grams of a single macro
func (t Totals) Grams(m Macro) float64 {
	switch m {
	case Protein:
		return t.Protein
	case Carbs:
		return t.Carbs
	case Fat:
		return t.Fat
	default:
		return 0
	}
}

// Percent returns the share of calories of a single macro
func (t Totals) Percent(m Macro) float64 {
	switch m {
	case Protein:
		return t.ProteinPercent
	case Carbs:
		return t.CarbsPercent
	case Fat:
		return t.FatPercent
	default:
		return 0
	}
}

// ValidationResult is the outcome of checking a plan against its targets
type ValidationResult struct {
	IsValid      bool     `json:"is_valid"`
	Errors       []string `json:"errors"`
	ActualTotals Totals   `json:"actual_totals"`
}

// AttemptRecord is one iteration of the planning loop
type AttemptRecord struct {
	AttemptNumber int              `json:"attempt_number"`
	ResultPlan    *Plan            `json:"result_plan,omitempty"`
	Validation    ValidationResult `json:"validation"`
	Err           string           `json:"error,omitempty"`
}
