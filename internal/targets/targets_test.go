package targets

import (
	"math"
	"testing"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Run("deficit example", func(t *testing.T) {
		got, err := Compute(3000, -400, types.MacroSplit{Protein: 40, Carbs: 35, Fat: 25})
		require.NoError(t, err)

		assert.Equal(t, 2600.0, got.Calories)
		assert.Equal(t, 260.0, got.ProteinGrams)
		assert.Equal(t, 227.5, got.CarbsGrams)
		assert.Equal(t, 72.2, got.FatGrams)
		assert.Equal(t, 1040.0, got.ProteinCalories)
		assert.Equal(t, 910.0, got.CarbsCalories)
		assert.Equal(t, 650.0, got.FatCalories)
	})

	t.Run("maintenance keeps base", func(t *testing.T) {
		got, err := Compute(2200, 0, types.MacroSplit{Protein: 30, Carbs: 40, Fat: 30})
		require.NoError(t, err)
		assert.Equal(t, 2200.0, got.Calories)
	})

	t.Run("split within tolerance", func(t *testing.T) {
		_, err := Compute(2000, 0, types.MacroSplit{Protein: 33.3, Carbs: 33.3, Fat: 33.3})
		assert.NoError(t, err)
	})
}

func TestCompute_InvalidSplit(t *testing.T) {
	tests := []struct {
		name  string
		split types.MacroSplit
	}{
		{name: "sum too low", split: types.MacroSplit{Protein: 30, Carbs: 30, Fat: 30}},
		{name: "sum too high", split: types.MacroSplit{Protein: 40, Carbs: 40, Fat: 20.2}},
		{name: "negative share", split: types.MacroSplit{Protein: 60, Carbs: 50, Fat: -10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(2500, 0, tt.split)
			assert.ErrorIs(t, err, ErrInvalidMacroSpec)
		})
	}
}

func TestCompute_RecomputedCaloriesMatchAdjustedTarget(t *testing.T) {
	splits := []types.MacroSplit{
		{Protein: 40, Carbs: 35, Fat: 25},
		{Protein: 30, Carbs: 40, Fat: 30},
		{Protein: 25, Carbs: 50, Fat: 25},
		{Protein: 33, Carbs: 33, Fat: 34},
		{Protein: 20, Carbs: 10, Fat: 70},
		{Protein: 35.5, Carbs: 44.5, Fat: 20},
	}

	for base := 1400.0; base <= 4200; base += 137 {
		for _, adjustment := range []float64{-750, -333, 0, 250, 501} {
			for _, split := range splits {
				got, err := Compute(base, adjustment, split)
				require.NoError(t, err)

				recomputed := math.Round(got.ProteinGrams*4) + math.Round(got.CarbsGrams*4) + math.Round(got.FatGrams*9)
				assert.Equal(t, base+adjustment, recomputed, "base=%v adj=%v split=%+v", base, adjustment, split)
				assert.Equal(t, got.Calories, recomputed)
			}
		}
	}
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 72.2, Round1(72.2222))
	assert.Equal(t, 72.3, Round1(72.25))
	assert.Equal(t, 0.0, Round1(0.04))
}
