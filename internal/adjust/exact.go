package adjust

import (
	"errors"
	"fmt"
	"math"

	"github.com/noot-app/macroplan-mcp-server/internal/nnls"
	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// ErrSolutionRejected is returned when the exact solve produced portions outside the
// allowed range; callers fall back to a weaker strategy
var ErrSolutionRejected = errors.New("exact redistribution rejected")

// ExactOptions bounds how far the exact solver may move each portion
type ExactOptions struct {
	// MaxIncrease is the largest allowed new/original quantity ratio
	MaxIncrease float64
	// MinFraction is the smallest allowed new/original quantity ratio
	MinFraction float64
	// MaxIterations for the NNLS solve
	MaxIterations int
}

// DefaultExactOptions allows up to doubling a portion and shrinking it to 1% of original
func DefaultExactOptions() ExactOptions {
	return ExactOptions{MaxIncrease: 2.0, MinFraction: 0.01, MaxIterations: nnls.DefaultMaxIterations}
}

// ExactRedistribute solves for the absolute gram quantity of every counted portion so the
// plan's protein, carbs and fat hit their targets in the least-squares sense. The plan is
// only modified when every portion stays within the ratio bounds and the resulting calories
// are within 10% (or 100 kcal, whichever is larger) of the target.
func ExactRedistribute(plan *types.Plan, t types.MacroTargets, opts ExactOptions) error {
	if opts.MaxIncrease <= 0 {
		opts.MaxIncrease = DefaultExactOptions().MaxIncrease
	}
	if opts.MinFraction < 0 {
		opts.MinFraction = 0
	}

	var portions []*types.FoodPortion
	fixedCalories := 0.0
	for _, p := range plan.CountedPortions() {
		if p.QuantityGrams <= 0 || p.Profile.IsZero() {
			fixedCalories += p.Calories()
			continue
		}
		portions = append(portions, p)
	}

	a := make([][]float64, len(types.Macros))
	b := make([]float64, len(types.Macros))
	for r, m := range types.Macros {
		a[r] = make([]float64, len(portions))
		for j, p := range portions {
			a[r][j] = p.Profile.Macro(m) / 100
		}
		b[r] = t.Grams(m)
	}

	res, err := nnls.Solve(a, b, opts.MaxIterations)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSolutionRejected, err)
	}

	newCalories := fixedCalories
	for j, p := range portions {
		ratio := res.X[j] / p.QuantityGrams
		if ratio > opts.MaxIncrease || ratio < opts.MinFraction {
			return fmt.Errorf("%w: %s would change by x%.2f", ErrSolutionRejected, p.Name, ratio)
		}
		newCalories += p.Profile.Calories * res.X[j] / 100
	}

	tolerance := math.Max(0.10*t.Calories, 100)
	if math.Abs(newCalories-t.Calories) > tolerance {
		return fmt.Errorf("%w: calories would be %.0f, target %.0f", ErrSolutionRejected, newCalories, t.Calories)
	}

	for j, p := range portions {
		p.QuantityGrams = targets.Round1(res.X[j])
	}
	return nil
}
