package validate

import (
	"fmt"
	"math"

	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// Fixed acceptance thresholds
const (
	MaxCalorieDeviation = 150.0
	MaxMacroDeviation   = 15.0
	MaxPercentDeviation = 3.0
)

// Totals sums every non-alternative portion of the meals. Calories are rounded to whole
// kcal and macros to one decimal per portion, then accumulated, so the totals match what
// a per-line rendering of the plan would add up to.
func Totals(meals []types.Meal) types.Totals {
	var t types.Totals
	for _, meal := range meals {
		for _, food := range meal.Foods {
			if !food.Counted() {
				continue
			}
			t.Calories += math.Round(food.Calories())
			t.Protein += targets.Round1(food.MacroGrams(types.Protein))
			t.Carbs += targets.Round1(food.MacroGrams(types.Carbs))
			t.Fat += targets.Round1(food.MacroGrams(types.Fat))
		}
	}

	// clean up float drift from the accumulation
	t.Protein = targets.Round1(t.Protein)
	t.Carbs = targets.Round1(t.Carbs)
	t.Fat = targets.Round1(t.Fat)

	if t.Calories > 0 {
		t.ProteinPercent = percentOf(t.Protein, types.KcalPerGramProtein, t.Calories)
		t.CarbsPercent = percentOf(t.Carbs, types.KcalPerGramCarbs, t.Calories)
		t.FatPercent = percentOf(t.Fat, types.KcalPerGramFat, t.Calories)
	}
	return t
}

func percentOf(grams, kcalPerGram, totalCalories float64) float64 {
	return math.Round(grams * kcalPerGram / totalCalories * 100)
}

// Plan validates a plan against its targets and the requested split.
// Every violated threshold is reported, not just the first.
func Plan(meals []types.Meal, t types.MacroTargets) types.ValidationResult {
	actual := Totals(meals)
	var errs []string

	if dev := math.Abs(actual.Calories - t.Calories); dev > MaxCalorieDeviation {
		errs = append(errs, fmt.Sprintf("Calories off by %.0f kcal (actual %.0f, target %.0f, max ±%.0f)",
			dev, actual.Calories, t.Calories, MaxCalorieDeviation))
	}

	for _, m := range types.Macros {
		target := t.Grams(m)
		got := actual.Grams(m)
		if dev := math.Abs(got - target); dev > MaxMacroDeviation {
			errs = append(errs, fmt.Sprintf("%s off by %.1fg (actual %.1fg, target %.1fg, max ±%.0fg)",
				macroLabel(m), dev, got, target, MaxMacroDeviation))
		}
	}

	for _, m := range types.Macros {
		target := t.Split.Percent(m)
		got := actual.Percent(m)
		if dev := math.Abs(got - target); dev > MaxPercentDeviation {
			errs = append(errs, fmt.Sprintf("%s share off by %.0f points (actual %.0f%%, target %.0f%%, max ±%.0f)",
				macroLabel(m), dev, got, target, MaxPercentDeviation))
		}
	}

	return types.ValidationResult{
		IsValid:      len(errs) == 0,
		Errors:       errs,
		ActualTotals: actual,
	}
}

// Deviations returns target minus actual for each macro, signed
func Deviations(actual types.Totals, t types.MacroTargets) map[types.Macro]float64 {
	out := make(map[types.Macro]float64, len(types.Macros))
	for _, m := range types.Macros {
		out[m] = t.Grams(m) - actual.Grams(m)
	}
	return out
}

func macroLabel(m types.Macro) string {
	switch m {
	case types.Protein:
		return "Protein"
	case types.Carbs:
		return "Carbs"
	case types.Fat:
		return "Fat"
	default:
		return m.String()
	}
}
