// Package adjust moves an existing plan toward its targets without regenerating it.
// Strategies, from coarsest to most precise: uniform scaling, greedy redistribution and
// an exact NNLS redistribution. The macro correction loop appends a corrective meal.
package adjust

import (
	"math"

	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/noot-app/macroplan-mcp-server/internal/validate"
)

// ScaleCalorieThreshold is the calorie deviation below which uniform scaling does nothing
const ScaleCalorieThreshold = 30.0

// DefaultMaxScalePercent bounds a single uniform scaling step
const DefaultMaxScalePercent = 0.25

// ScalePortions multiplies every counted portion by one factor so the plan's calories move
// toward the target, the change bounded by maxScalePercent. Macro ratios are left as they
// are. Reports whether the plan changed.
func ScalePortions(plan *types.Plan, t types.MacroTargets, maxScalePercent float64) bool {
	if maxScalePercent <= 0 {
		maxScalePercent = DefaultMaxScalePercent
	}

	totals := validate.Totals(plan.Meals)
	diff := t.Calories - totals.Calories
	if math.Abs(diff) <= ScaleCalorieThreshold || totals.Calories <= 0 {
		return false
	}

	factor := 1 + clamp(diff/totals.Calories, -maxScalePercent, maxScalePercent)
	for _, p := range plan.CountedPortions() {
		p.QuantityGrams = targets.Round1(p.QuantityGrams * factor)
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
