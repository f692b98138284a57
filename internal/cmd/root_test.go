package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmdHelp(t *testing.T) {
	out, err := execute(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "macroplan-mcp-server [flags]")
	assert.Contains(t, out, "--stdio")
	assert.Contains(t, out, "--fetch-db")
	assert.Contains(t, out, "plan_diet")
	assert.Contains(t, out, "plan")
}

func TestPlanCmd_TargetsOnly(t *testing.T) {
	out, err := execute(t, "plan", "--targets-only",
		"--base", "3000", "--adjust", "-400",
		"--protein", "40", "--carbs", "35", "--fat", "25")
	require.NoError(t, err)

	var got types.MacroTargets
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2600.0, got.Calories)
	assert.Equal(t, 260.0, got.ProteinGrams)
	assert.Equal(t, 227.5, got.CarbsGrams)
	assert.Equal(t, 72.2, got.FatGrams)
}

func TestPlanCmd_TargetsOnlyRejectsBadSplit(t *testing.T) {
	_, err := execute(t, "plan", "--targets-only",
		"--base", "2000", "--protein", "50", "--carbs", "30", "--fat", "30")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 110")
}

func TestBuildRequest(t *testing.T) {
	requestFile := writeFile(t, "request.yaml", `
base_metabolic_target: 2500
calorie_adjustment: 200
split:
  protein: 30
  carbs: 40
  fat: 30
meal_count: 4
constraints:
  diet_type: vegetarian
`)
	constraintsFile := writeFile(t, "constraints.yaml", `
allowed_foods: [oats, greek yogurt]
excluded_foods:
  - peanuts
`)

	newCmd := func(args ...string) (*cobra.Command, planFlags) {
		var f planFlags
		cmd := newPlanCmd()
		require.NoError(t, cmd.ParseFlags(args))
		f.requestFile, _ = cmd.Flags().GetString("request")
		f.constraintsFile, _ = cmd.Flags().GetString("constraints")
		f.base, _ = cmd.Flags().GetFloat64("base")
		f.adjust, _ = cmd.Flags().GetFloat64("adjust")
		f.protein, _ = cmd.Flags().GetFloat64("protein")
		f.carbs, _ = cmd.Flags().GetFloat64("carbs")
		f.fat, _ = cmd.Flags().GetFloat64("fat")
		f.meals, _ = cmd.Flags().GetInt("meals")
		return cmd, f
	}

	t.Run("request file", func(t *testing.T) {
		cmd, f := newCmd("--request", requestFile)
		req, err := buildRequest(cmd, f)
		require.NoError(t, err)

		assert.Equal(t, 2500.0, req.BaseMetabolicTarget)
		assert.Equal(t, 200.0, req.CalorieAdjustment)
		assert.Equal(t, types.MacroSplit{Protein: 30, Carbs: 40, Fat: 30}, req.Split)
		assert.Equal(t, 4, req.MealCount)
		assert.Equal(t, "vegetarian", req.Constraints.DietType)
	})

	t.Run("flags override file", func(t *testing.T) {
		cmd, f := newCmd("--request", requestFile, "--base", "1800", "--meals", "2")
		req, err := buildRequest(cmd, f)
		require.NoError(t, err)

		assert.Equal(t, 1800.0, req.BaseMetabolicTarget)
		assert.Equal(t, 200.0, req.CalorieAdjustment)
		assert.Equal(t, 2, req.MealCount)
	})

	t.Run("constraints file replaces request constraints", func(t *testing.T) {
		cmd, f := newCmd("--request", requestFile, "--constraints", constraintsFile)
		req, err := buildRequest(cmd, f)
		require.NoError(t, err)

		assert.Equal(t, []string{"oats", "greek yogurt"}, req.Constraints.AllowedFoods)
		assert.Equal(t, []string{"peanuts"}, req.Constraints.ExcludedFoods)
		assert.True(t, req.Constraints.Strict())
		assert.Empty(t, req.Constraints.DietType)
	})

	t.Run("defaults", func(t *testing.T) {
		cmd, f := newCmd()
		req, err := buildRequest(cmd, f)
		require.NoError(t, err)
		assert.Equal(t, 3, req.MealCount)
	})

	t.Run("missing file", func(t *testing.T) {
		cmd, f := newCmd("--constraints", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := buildRequest(cmd, f)
		assert.ErrorContains(t, err, "failed to read constraints")
	})
}
