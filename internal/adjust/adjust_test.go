package adjust

import (
	"math"
	"testing"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/noot-app/macroplan-mcp-server/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pureProtein = types.NutrientProfile{Calories: 400, Protein: 100}
	pureCarbs   = types.NutrientProfile{Calories: 400, Carbs: 100}
	pureFat     = types.NutrientProfile{Calories: 900, Fat: 100}
)

func exampleTargets() types.MacroTargets {
	return types.MacroTargets{
		Calories:     2600,
		ProteinGrams: 260,
		CarbsGrams:   227.5,
		FatGrams:     72.2,
		Split:        types.MacroSplit{Protein: 40, Carbs: 35, Fat: 25},
	}
}

func planWith(protein, carbs, fat float64) *types.Plan {
	return &types.Plan{Meals: []types.Meal{
		{Name: "Lunch", Foods: []types.FoodPortion{
			{Name: "isolate", Profile: pureProtein, QuantityGrams: protein},
			{Name: "dextrose", Profile: pureCarbs, QuantityGrams: carbs},
			{Name: "isolate shake", Profile: pureProtein, QuantityGrams: 0, IsAlternative: true},
		}},
		{Name: "Dinner", Foods: []types.FoodPortion{
			{Name: "oil", Profile: pureFat, QuantityGrams: fat},
		}},
	}}
}

func TestScalePortions(t *testing.T) {
	target := exampleTargets()

	t.Run("moves calories toward target", func(t *testing.T) {
		plan := planWith(234, 204.8, 65)
		before := validate.Totals(plan.Meals).Calories

		require.True(t, ScalePortions(plan, target, DefaultMaxScalePercent))

		after := validate.Totals(plan.Meals).Calories
		assert.Less(t, math.Abs(target.Calories-after), math.Abs(target.Calories-before))
		assert.InDelta(t, target.Calories, after, 10)
	})

	t.Run("factor is bounded", func(t *testing.T) {
		plan := planWith(100, 100, 20)

		require.True(t, ScalePortions(plan, target, 0.25))

		assert.Equal(t, 125.0, plan.Meals[0].Foods[0].QuantityGrams)
		assert.Equal(t, 25.0, plan.Meals[1].Foods[0].QuantityGrams)
	})

	t.Run("no change within threshold", func(t *testing.T) {
		plan := planWith(260, 227.5, 70)

		assert.False(t, ScalePortions(plan, target, DefaultMaxScalePercent))
		assert.Equal(t, 70.0, plan.Meals[1].Foods[0].QuantityGrams)
	})

	t.Run("alternatives untouched", func(t *testing.T) {
		plan := planWith(200, 200, 50)
		plan.Meals[0].Foods[2].QuantityGrams = 40

		ScalePortions(plan, target, DefaultMaxScalePercent)

		assert.Equal(t, 40.0, plan.Meals[0].Foods[2].QuantityGrams)
	})
}

func TestRedistributePortions(t *testing.T) {
	target := exampleTargets()

	t.Run("reduces the worst deviation", func(t *testing.T) {
		// protein 30g short, calories 120 short
		plan := planWith(230, 227.5, 72.2)
		before := validate.Deviations(validate.Totals(plan.Meals), target)

		require.True(t, RedistributePortions(plan, target, DefaultRedistributeRounds))

		after := validate.Deviations(validate.Totals(plan.Meals), target)
		assert.Less(t, math.Abs(after[types.Protein]), math.Abs(before[types.Protein]))
		assert.LessOrEqual(t, math.Abs(after[types.Protein]), redistributeTolerance[types.Protein])
	})

	t.Run("skips plans far off on calories", func(t *testing.T) {
		plan := planWith(150, 150, 40)

		assert.False(t, RedistributePortions(plan, target, DefaultRedistributeRounds))
		assert.Equal(t, 150.0, plan.Meals[0].Foods[0].QuantityGrams)
	})

	t.Run("no change when already within tolerance", func(t *testing.T) {
		plan := planWith(255, 225, 72)

		assert.False(t, RedistributePortions(plan, target, DefaultRedistributeRounds))
	})
}

func TestWorstMacroAndNudge(t *testing.T) {
	dev := map[types.Macro]float64{types.Protein: 5, types.Carbs: -20, types.Fat: 10}
	assert.Equal(t, types.Carbs, worstMacro(dev))

	assert.Equal(t, minNudge, nudgeSize(0.1, 200))
	assert.Equal(t, maxNudge, nudgeSize(150, 200))
	assert.InDelta(t, 0.1, nudgeSize(20, 200), 1e-9)
	assert.Equal(t, maxNudge, nudgeSize(5, 0))
}

func TestExactRedistribute(t *testing.T) {
	target := exampleTargets()

	t.Run("hits macro targets", func(t *testing.T) {
		plan := planWith(200, 250, 60)

		require.NoError(t, ExactRedistribute(plan, target, DefaultExactOptions()))

		assert.InDelta(t, 260, plan.Meals[0].Foods[0].QuantityGrams, 0.1)
		assert.InDelta(t, 227.5, plan.Meals[0].Foods[1].QuantityGrams, 0.1)
		assert.InDelta(t, 72.2, plan.Meals[1].Foods[0].QuantityGrams, 0.1)
		assert.True(t, validate.Plan(plan.Meals, target).IsValid)
	})

	t.Run("rejects portions that would more than double", func(t *testing.T) {
		plan := planWith(100, 227.5, 72.2)

		err := ExactRedistribute(plan, target, DefaultExactOptions())

		require.ErrorIs(t, err, ErrSolutionRejected)
		assert.Equal(t, 100.0, plan.Meals[0].Foods[0].QuantityGrams)
	})

	t.Run("rejects a plan with no usable portions", func(t *testing.T) {
		plan := &types.Plan{Meals: []types.Meal{{Name: "Lunch", Foods: []types.FoodPortion{
			{Name: "mystery", QuantityGrams: 100, Placeholder: true},
		}}}}

		assert.ErrorIs(t, ExactRedistribute(plan, target, DefaultExactOptions()), ErrSolutionRejected)
	})

	t.Run("rejects when calories land outside tolerance", func(t *testing.T) {
		// a food carrying protein at very high calorie density pushes energy far past target
		dense := types.NutrientProfile{Calories: 900, Protein: 100}
		plan := &types.Plan{Meals: []types.Meal{{Name: "Lunch", Foods: []types.FoodPortion{
			{Name: "dense", Profile: dense, QuantityGrams: 200},
			{Name: "dextrose", Profile: pureCarbs, QuantityGrams: 227.5},
			{Name: "oil", Profile: pureFat, QuantityGrams: 72.2},
		}}}}

		assert.ErrorIs(t, ExactRedistribute(plan, target, DefaultExactOptions()), ErrSolutionRejected)
		assert.Equal(t, 200.0, plan.Meals[0].Foods[0].QuantityGrams)
	})
}
