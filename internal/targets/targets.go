package targets

import (
	"errors"
	"fmt"
	"math"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// ErrInvalidMacroSpec is returned when the macro percentages do not add up to 100
var ErrInvalidMacroSpec = errors.New("invalid macro specification")

// SplitTolerance is the allowed deviation of the percentage sum from 100
const SplitTolerance = 0.1

// Compute turns a base metabolic target, a signed calorie adjustment and a macro split into
// exact gram and calorie targets. Any rounding remainder is pushed into fat, whose larger
// kcal/g divisor keeps the relative distortion smallest. The returned Calories is the sum of
// the per-macro calories recomputed from the rounded grams.
func Compute(baseMetabolicTarget, calorieAdjustment float64, split types.MacroSplit) (types.MacroTargets, error) {
	if math.Abs(split.Sum()-100) > SplitTolerance {
		return types.MacroTargets{}, fmt.Errorf("%w: percentages sum to %.2f, expected 100", ErrInvalidMacroSpec, split.Sum())
	}
	if split.Protein < 0 || split.Carbs < 0 || split.Fat < 0 {
		return types.MacroTargets{}, fmt.Errorf("%w: percentages must not be negative", ErrInvalidMacroSpec)
	}
	if baseMetabolicTarget <= 0 {
		return types.MacroTargets{}, fmt.Errorf("%w: base metabolic target must be positive", ErrInvalidMacroSpec)
	}

	adjusted := baseMetabolicTarget + calorieAdjustment
	if adjusted <= 0 {
		return types.MacroTargets{}, fmt.Errorf("%w: adjusted calories %.0f must be positive", ErrInvalidMacroSpec, adjusted)
	}

	proteinCal := math.Round(adjusted * split.Protein / 100)
	carbsCal := math.Round(adjusted * split.Carbs / 100)
	fatCal := math.Round(adjusted * split.Fat / 100)

	// fat absorbs the rounding remainder
	fatCal += adjusted - (proteinCal + carbsCal + fatCal)

	proteinGrams := Round1(proteinCal / types.KcalPerGramProtein)
	carbsGrams := Round1(carbsCal / types.KcalPerGramCarbs)
	fatGrams := Round1(fatCal / types.KcalPerGramFat)

	finalProtein := math.Round(proteinGrams * types.KcalPerGramProtein)
	finalCarbs := math.Round(carbsGrams * types.KcalPerGramCarbs)
	finalFat := math.Round(fatGrams * types.KcalPerGramFat)

	return types.MacroTargets{
		Calories:        finalProtein + finalCarbs + finalFat,
		ProteinGrams:    proteinGrams,
		CarbsGrams:      carbsGrams,
		FatGrams:        fatGrams,
		ProteinCalories: finalProtein,
		CarbsCalories:   finalCarbs,
		FatCalories:     finalFat,
		Split:           split,
	}, nil
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
