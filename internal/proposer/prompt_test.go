package proposer

import (
	"testing"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/stretchr/testify/assert"
)

func promptTargets() types.MacroTargets {
	return types.MacroTargets{
		Calories: 2600, ProteinGrams: 260, CarbsGrams: 227.5, FatGrams: 72.2,
		Split: types.MacroSplit{Protein: 40, Carbs: 35, Fat: 25},
	}
}

func TestBuildInitialPrompt(t *testing.T) {
	p := BuildInitialPrompt(promptTargets(), 4, types.Constraints{
		AllowedFoods:  []string{"chicken breast", "white rice"},
		ExcludedFoods: []string{"peanuts"},
		DietType:      "high protein",
	})

	assert.Contains(t, p, "Calories: 2600 kcal")
	assert.Contains(t, p, "Protein: 260.0g (40% of calories)")
	assert.Contains(t, p, "Exactly 4 meals")
	assert.Contains(t, p, "Use ONLY these foods, spelled exactly as given: chicken breast, white rice")
	assert.Contains(t, p, "Never use: peanuts")
	assert.Contains(t, p, "Diet type: high protein")
	assert.Contains(t, p, `"meals"`)
}

func TestBuildInitialPrompt_NoConstraints(t *testing.T) {
	p := BuildInitialPrompt(promptTargets(), 3, types.Constraints{})
	assert.NotContains(t, p, "CONSTRAINTS")
}

func TestBuildAdjustmentPrompt(t *testing.T) {
	plan := &types.Plan{Meals: []types.Meal{{Name: "Lunch", Foods: []types.FoodPortion{
		{Name: "chicken breast", QuantityGrams: 200},
		{Name: "tofu", QuantityGrams: 150, IsAlternative: true},
	}}}}
	attempt := func(n int, protein float64) types.AttemptRecord {
		return types.AttemptRecord{
			AttemptNumber: n,
			ResultPlan:    plan,
			Validation: types.ValidationResult{
				Errors:       []string{"Protein off by 16.0g"},
				ActualTotals: types.Totals{Calories: 2536, Protein: protein, Carbs: 227.5, Fat: 72.2},
			},
		}
	}
	history := []types.AttemptRecord{
		attempt(1, 200),
		{AttemptNumber: 2, Err: "malformed proposer response"},
		attempt(3, 230),
		attempt(4, 244),
	}

	p := BuildAdjustmentPrompt(promptTargets(), 4, types.Constraints{}, history)

	assert.NotContains(t, p, "Attempt 1:")
	assert.Contains(t, p, "Attempt 2 failed: malformed proposer response")
	assert.Contains(t, p, "Attempt 4: 2536 kcal, 244.0g protein")
	assert.Contains(t, p, "protein +16.0g")
	assert.Contains(t, p, "calories +64.0kcal")
	assert.Contains(t, p, "fat +0.0g")
	assert.Contains(t, p, "200g chicken breast")
	assert.Contains(t, p, "150g tofu (alternative)")
	assert.Contains(t, p, "ADJUST PORTIONS")
}
