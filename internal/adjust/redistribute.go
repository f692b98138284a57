package adjust

import (
	"math"
	"sort"

	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/noot-app/macroplan-mcp-server/internal/validate"
)

const (
	// RedistributeCalorieWindow is how close calories must already be before macros are tuned
	RedistributeCalorieWindow = 200.0
	// DefaultRedistributeRounds caps the greedy loop
	DefaultRedistributeRounds = 25

	minNudge = 0.02
	maxNudge = 0.20
)

// secondary tolerances at which the greedy loop stops early
var redistributeTolerance = map[types.Macro]float64{
	types.Protein: 10,
	types.Carbs:   10,
	types.Fat:     8,
}

// RedistributePortions nudges one portion per round toward the macro with the largest
// deviation. Candidates are ranked by that macro's grams per kcal; a nudge is kept only when
// it strictly reduces the deviation, otherwise the next candidate is tried. Only runs when
// calories are already within RedistributeCalorieWindow. Reports whether the plan changed.
func RedistributePortions(plan *types.Plan, t types.MacroTargets, maxRounds int) bool {
	if maxRounds <= 0 {
		maxRounds = DefaultRedistributeRounds
	}

	totals := validate.Totals(plan.Meals)
	if math.Abs(t.Calories-totals.Calories) > RedistributeCalorieWindow {
		return false
	}

	changed := false
	for round := 0; round < maxRounds; round++ {
		dev := validate.Deviations(totals, t)
		if withinRedistributeTolerance(dev) {
			break
		}

		macro := worstMacro(dev)
		deviation := dev[macro]
		step := nudgeSize(deviation, t.Grams(macro))
		direction := 1.0
		if deviation < 0 {
			direction = -1.0
		}

		accepted := false
		for _, p := range rankByEfficiency(plan, macro) {
			original := p.QuantityGrams
			p.QuantityGrams = targets.Round1(original * (1 + direction*step))

			next := validate.Totals(plan.Meals)
			if math.Abs(t.Grams(macro)-next.Grams(macro)) < math.Abs(deviation) {
				totals = next
				accepted = true
				break
			}
			p.QuantityGrams = original
		}
		if !accepted {
			break
		}
		changed = true
	}
	return changed
}

func withinRedistributeTolerance(dev map[types.Macro]float64) bool {
	for _, m := range types.Macros {
		if math.Abs(dev[m]) > redistributeTolerance[m] {
			return false
		}
	}
	return true
}

// worstMacro returns the macro with the largest absolute deviation
func worstMacro(dev map[types.Macro]float64) types.Macro {
	worst := types.Protein
	for _, m := range types.Macros {
		if math.Abs(dev[m]) > math.Abs(dev[worst]) {
			worst = m
		}
	}
	return worst
}

// nudgeSize scales the step with the relative size of the deviation
func nudgeSize(deviation, target float64) float64 {
	if target <= 0 {
		return maxNudge
	}
	return clamp(math.Abs(deviation)/target, minNudge, maxNudge)
}

// rankByEfficiency returns counted portions carrying the macro, best grams-per-kcal first
func rankByEfficiency(plan *types.Plan, macro types.Macro) []*types.FoodPortion {
	var ranked []*types.FoodPortion
	for _, p := range plan.CountedPortions() {
		if p.QuantityGrams > 0 && p.Profile.Macro(macro) > 0 {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return efficiency(ranked[i], macro) > efficiency(ranked[j], macro)
	})
	return ranked
}

func efficiency(p *types.FoodPortion, macro types.Macro) float64 {
	if p.Profile.Calories <= 0 {
		return p.Profile.Macro(macro)
	}
	return p.Profile.Macro(macro) / p.Profile.Calories
}
