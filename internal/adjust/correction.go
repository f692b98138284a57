package adjust

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/noot-app/macroplan-mcp-server/internal/nnls"
	"github.com/noot-app/macroplan-mcp-server/internal/nutrients"
	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/noot-app/macroplan-mcp-server/internal/validate"
)

// CorrectionMealName names the meal appended by the correction loop
const CorrectionMealName = "Macro correction"

const (
	// DefaultCalorieCap bounds the calories a single correction may add
	DefaultCalorieCap = 800.0

	deficitThreshold        = 1.0
	correctionCalorieWindow = 50.0
	minCorrectionGrams      = 1.0
)

// correctionFoods are macro-dense foods tried in priority order per deficient macro
var correctionFoods = map[types.Macro][]string{
	types.Protein: {"chicken breast", "egg white", "whey protein"},
	types.Carbs:   {"white rice", "oats", "banana"},
	types.Fat:     {"olive oil", "almonds", "avocado"},
}

// ProfileResolver resolves food names to profiles
type ProfileResolver interface {
	Resolve(ctx context.Context, name string) (nutrients.Food, error)
}

// Corrector appends a small corrective meal when a plan is short on specific macros
type Corrector struct {
	resolver   ProfileResolver
	calorieCap float64
	log        *slog.Logger
}

// NewCorrector creates a correction loop. calorieCap <= 0 uses DefaultCalorieCap.
func NewCorrector(resolver ProfileResolver, calorieCap float64, logger *slog.Logger) *Corrector {
	if calorieCap <= 0 {
		calorieCap = DefaultCalorieCap
	}
	return &Corrector{resolver: resolver, calorieCap: calorieCap, log: logger}
}

type correctionCandidate struct {
	food   nutrients.Food
	macros []types.Macro
}

// Correct appends a corrective meal covering the plan's macro deficits. Plans that already
// validate, or whose deficits are all within 1g, are returned untouched. Reports whether a
// correction meal was added.
func (c *Corrector) Correct(ctx context.Context, plan *types.Plan, t types.MacroTargets) (bool, error) {
	start := time.Now()

	result := validate.Plan(plan.Meals, t)
	if result.IsValid {
		return false, nil
	}

	totals := result.ActualTotals
	deficits := validate.Deviations(totals, t)
	calorieDeviation := math.Abs(t.Calories - totals.Calories)

	var deficient []types.Macro
	for _, m := range types.Macros {
		if deficits[m] > deficitThreshold {
			deficient = append(deficient, m)
		}
	}
	if len(deficient) == 0 {
		c.log.Debug("Macro correction not needed",
			"calorie_deviation", calorieDeviation,
			"within_calorie_window", calorieDeviation <= correctionCalorieWindow)
		return false, nil
	}

	candidates, err := c.pickCandidates(ctx, deficient)
	if err != nil {
		return false, err
	}
	if len(candidates) == 0 {
		c.log.Warn("No correction foods could be resolved", "deficient", len(deficient))
		return false, nil
	}

	grams := c.solve(candidates, deficits)
	grams = c.capCalories(candidates, grams)

	var portions []types.FoodPortion
	for j, cand := range candidates {
		g := targets.Round1(grams[j])
		if g < minCorrectionGrams {
			continue
		}
		portions = append(portions, types.FoodPortion{
			Name:          cand.food.Key,
			Profile:       cand.food.Profile,
			QuantityGrams: g,
			Source:        cand.food.Source,
			Reasoning:     "added to close the " + macroList(cand.macros) + " gap",
		})
	}
	if len(portions) == 0 {
		return false, nil
	}

	appendCorrection(plan, portions)

	c.log.Info("Macro correction meal added",
		"foods", len(portions),
		"protein_deficit", deficits[types.Protein],
		"carbs_deficit", deficits[types.Carbs],
		"fat_deficit", deficits[types.Fat],
		"duration", time.Since(start))
	return true, nil
}

// pickCandidates resolves one food per deficient macro, at most three in total
func (c *Corrector) pickCandidates(ctx context.Context, deficient []types.Macro) ([]correctionCandidate, error) {
	var out []correctionCandidate
	byKey := make(map[string]int)

	for _, m := range deficient {
		for _, name := range correctionFoods[m] {
			f, err := c.resolver.Resolve(ctx, name)
			if err != nil {
				if errors.Is(err, nutrients.ErrFoodNotFound) {
					continue
				}
				return nil, err
			}
			if f.Profile.Macro(m) <= 0 {
				continue
			}
			if i, ok := byKey[f.Key]; ok {
				out[i].macros = append(out[i].macros, m)
			} else {
				byKey[f.Key] = len(out)
				out = append(out, correctionCandidate{food: f, macros: []types.Macro{m}})
			}
			break
		}
	}
	return out, nil
}

// solve finds grams for each candidate with NNLS, falling back to one food per macro
func (c *Corrector) solve(candidates []correctionCandidate, deficits map[types.Macro]float64) []float64 {
	a := make([][]float64, len(types.Macros))
	b := make([]float64, len(types.Macros))
	for r, m := range types.Macros {
		a[r] = make([]float64, len(candidates))
		for j, cand := range candidates {
			a[r][j] = cand.food.Profile.Macro(m) / 100
		}
		b[r] = math.Max(deficits[m], 0)
	}

	res, err := nnls.Solve(a, b, 0)
	if err == nil {
		return res.X
	}
	c.log.Debug("NNLS correction failed, using greedy amounts", "error", err)

	grams := make([]float64, len(candidates))
	for j, cand := range candidates {
		for _, m := range cand.macros {
			per := cand.food.Profile.Macro(m) / 100
			if per > 0 {
				grams[j] = math.Max(grams[j], deficits[m]/per)
			}
		}
	}
	return grams
}

// capCalories scales all amounts down proportionally if they exceed the calorie cap
func (c *Corrector) capCalories(candidates []correctionCandidate, grams []float64) []float64 {
	added := 0.0
	for j, cand := range candidates {
		added += cand.food.Profile.Calories * grams[j] / 100
	}
	if added <= c.calorieCap || added == 0 {
		return grams
	}
	factor := c.calorieCap / added
	out := make([]float64, len(grams))
	for j := range grams {
		out[j] = grams[j] * factor
	}
	c.log.Debug("Correction scaled to calorie cap", "requested_kcal", added, "cap", c.calorieCap)
	return out
}

// appendCorrection adds portions to the existing correction meal or creates it
func appendCorrection(plan *types.Plan, portions []types.FoodPortion) {
	for i := range plan.Meals {
		if plan.Meals[i].Name != CorrectionMealName {
			continue
		}
		for _, p := range portions {
			merged := false
			for j := range plan.Meals[i].Foods {
				if plan.Meals[i].Foods[j].Name == p.Name {
					plan.Meals[i].Foods[j].QuantityGrams += p.QuantityGrams
					merged = true
					break
				}
			}
			if !merged {
				plan.Meals[i].Foods = append(plan.Meals[i].Foods, p)
			}
		}
		return
	}
	plan.Meals = append(plan.Meals, types.Meal{Name: CorrectionMealName, Foods: portions})
}

func macroList(macros []types.Macro) string {
	s := ""
	for i, m := range macros {
		if i > 0 {
			s += "/"
		}
		s += m.String()
	}
	return s
}
