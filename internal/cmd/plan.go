package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/noot-app/macroplan-mcp-server/internal/config"
	"github.com/noot-app/macroplan-mcp-server/internal/planner"
	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type planFlags struct {
	requestFile     string
	constraintsFile string
	base            float64
	adjust          float64
	protein         float64
	carbs           float64
	fat             float64
	meals           int
	targetsOnly     bool
}

func newPlanCmd() *cobra.Command {
	var f planFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate one diet plan and print it as JSON",
		Long: `Generate one diet plan without starting the server.

The request can come from flags, from a YAML file (--request), or both; flags
that are set explicitly override the file. Constraints can be given in their own
YAML file:

  allowed_foods: [chicken breast, white rice, olive oil]
  excluded_foods: [peanuts]
  diet_type: high protein

With --targets-only the command prints the computed gram targets and exits
without contacting the model.`,
		Example: `  macroplan-mcp-server plan --base 3000 --adjust -400 --protein 40 --carbs 35 --fat 25
  macroplan-mcp-server plan --request week1.yaml --meals 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(cmd, f)
			if err != nil {
				return err
			}

			if f.targetsOnly {
				t, err := targets.Compute(req.BaseMetabolicTarget, req.CalorieAdjustment, req.Split)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), t)
			}

			logger := config.NewCLILogger()
			a, err := newApp(cmd.Context(), config.Load(), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.planner.PlanDiet(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&f.requestFile, "request", "", "YAML file with the full planning request")
	cmd.Flags().StringVar(&f.constraintsFile, "constraints", "", "YAML file with food constraints")
	cmd.Flags().Float64Var(&f.base, "base", 0, "Base metabolic target in kcal")
	cmd.Flags().Float64Var(&f.adjust, "adjust", 0, "Calorie adjustment in kcal (negative for a deficit)")
	cmd.Flags().Float64Var(&f.protein, "protein", 0, "Protein share of calories in percent")
	cmd.Flags().Float64Var(&f.carbs, "carbs", 0, "Carbohydrate share of calories in percent")
	cmd.Flags().Float64Var(&f.fat, "fat", 0, "Fat share of calories in percent")
	cmd.Flags().IntVar(&f.meals, "meals", planner.DefaultMealCount, "Number of meals")
	cmd.Flags().BoolVar(&f.targetsOnly, "targets-only", false, "Print the computed targets and exit")
	return cmd
}

// buildRequest merges the request file, the constraints file and explicit flags, in that order
func buildRequest(cmd *cobra.Command, f planFlags) (planner.Request, error) {
	req := planner.Request{MealCount: planner.DefaultMealCount}

	if f.requestFile != "" {
		if err := readYAML(f.requestFile, &req); err != nil {
			return planner.Request{}, fmt.Errorf("failed to read request: %w", err)
		}
	}
	if f.constraintsFile != "" {
		var c types.Constraints
		if err := readYAML(f.constraintsFile, &c); err != nil {
			return planner.Request{}, fmt.Errorf("failed to read constraints: %w", err)
		}
		req.Constraints = c
	}

	flags := cmd.Flags()
	if flags.Changed("base") {
		req.BaseMetabolicTarget = f.base
	}
	if flags.Changed("adjust") {
		req.CalorieAdjustment = f.adjust
	}
	if flags.Changed("protein") {
		req.Split.Protein = f.protein
	}
	if flags.Changed("carbs") {
		req.Split.Carbs = f.carbs
	}
	if flags.Changed("fat") {
		req.Split.Fat = f.fat
	}
	if flags.Changed("meals") {
		req.MealCount = f.meals
	}
	return req, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
