package mcpgo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/noot-app/macroplan-mcp-server/internal/nutrients"
	"github.com/noot-app/macroplan-mcp-server/internal/planner"
	"github.com/noot-app/macroplan-mcp-server/internal/targets"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

const maxMealCount = 8

// LookupFoodResponse is the structured result of lookup_food
type LookupFoodResponse struct {
	Found   bool                   `json:"found"`
	Query   string                 `json:"query"`
	Match   string                 `json:"match,omitempty"`
	Source  string                 `json:"source,omitempty"`
	Profile *types.NutrientProfile `json:"profile,omitempty"`
}

func (s *Server) addTools() {
	planTool := mcp.NewTool("plan_diet",
		mcp.WithDescription("Create a one-day meal plan whose calories and macros land within tolerance of targets derived from a base metabolic target, a calorie adjustment and a macro split. Percentages must sum to 100."),
		mcp.WithNumber("base_metabolic_target",
			mcp.Required(),
			mcp.Description("Baseline daily energy expenditure in kcal"),
			mcp.Min(1),
		),
		mcp.WithNumber("calorie_adjustment",
			mcp.Description("Signed kcal adjustment: negative for a deficit, positive for a surplus"),
			mcp.DefaultNumber(0),
		),
		mcp.WithNumber("protein_percent", mcp.Required(), mcp.Min(0), mcp.Max(100),
			mcp.Description("Share of calories from protein")),
		mcp.WithNumber("carbs_percent", mcp.Required(), mcp.Min(0), mcp.Max(100),
			mcp.Description("Share of calories from carbohydrates")),
		mcp.WithNumber("fat_percent", mcp.Required(), mcp.Min(0), mcp.Max(100),
			mcp.Description("Share of calories from fat")),
		mcp.WithNumber("meal_count",
			mcp.Description("Number of meals (default: 3, max: 8)"),
			mcp.DefaultNumber(planner.DefaultMealCount),
			mcp.Min(1),
			mcp.Max(maxMealCount),
		),
		mcp.WithArray("allowed_foods",
			mcp.Description("If set, only these foods may be used (strict mode)"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("excluded_foods",
			mcp.Description("Foods that must not appear"),
			mcp.WithStringItems(),
		),
		mcp.WithString("diet_type",
			mcp.Description("Free-text diet style, e.g. vegetarian or high protein"),
		),
		mcp.WithOutputSchema[planner.Result](),
	)
	s.mcpServer.AddTool(planTool, s.handlePlanDiet)

	targetsTool := mcp.NewTool("compute_targets",
		mcp.WithDescription("Compute exact daily calorie and macro gram targets without generating a plan"),
		mcp.WithNumber("base_metabolic_target", mcp.Required(), mcp.Min(1),
			mcp.Description("Baseline daily energy expenditure in kcal")),
		mcp.WithNumber("calorie_adjustment", mcp.DefaultNumber(0),
			mcp.Description("Signed kcal adjustment")),
		mcp.WithNumber("protein_percent", mcp.Required(), mcp.Description("Share of calories from protein")),
		mcp.WithNumber("carbs_percent", mcp.Required(), mcp.Description("Share of calories from carbohydrates")),
		mcp.WithNumber("fat_percent", mcp.Required(), mcp.Description("Share of calories from fat")),
		mcp.WithOutputSchema[types.MacroTargets](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(targetsTool, s.handleComputeTargets)

	lookupTool := mcp.NewTool("lookup_food",
		mcp.WithDescription("Look up calories and macros per 100g for a food name"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Food name, e.g. 'chicken breast'"),
		),
		mcp.WithOutputSchema[LookupFoodResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(lookupTool, s.handleLookupFood)
}

// targetArgs reads the arguments shared by plan_diet and compute_targets
func targetArgs(request mcp.CallToolRequest) (base, adjustment float64, split types.MacroSplit, err error) {
	if base, err = request.RequireFloat("base_metabolic_target"); err != nil {
		return 0, 0, split, err
	}
	adjustment = request.GetFloat("calorie_adjustment", 0)
	if split.Protein, err = request.RequireFloat("protein_percent"); err != nil {
		return 0, 0, split, err
	}
	if split.Carbs, err = request.RequireFloat("carbs_percent"); err != nil {
		return 0, 0, split, err
	}
	if split.Fat, err = request.RequireFloat("fat_percent"); err != nil {
		return 0, 0, split, err
	}
	return base, adjustment, split, nil
}

func (s *Server) handlePlanDiet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, adjustment, split, err := targetArgs(request)
	if err != nil {
		s.log.Warn("handlePlanDiet: invalid arguments", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	mealCount := request.GetInt("meal_count", planner.DefaultMealCount)
	if mealCount <= 0 {
		mealCount = planner.DefaultMealCount
	}
	if mealCount > maxMealCount {
		mealCount = maxMealCount
	}

	req := planner.Request{
		BaseMetabolicTarget: base,
		CalorieAdjustment:   adjustment,
		Split:               split,
		MealCount:           mealCount,
		Constraints: types.Constraints{
			AllowedFoods:  request.GetStringSlice("allowed_foods", nil),
			ExcludedFoods: request.GetStringSlice("excluded_foods", nil),
			DietType:      request.GetString("diet_type", ""),
		},
	}

	s.log.Debug("MCP plan_diet called",
		"base", base,
		"adjustment", adjustment,
		"meals", mealCount,
		"strict", req.Constraints.Strict())

	result, err := s.planner.PlanDiet(ctx, req)
	if err != nil {
		s.log.Warn("Planning failed", "error", err)
		return mcp.NewToolResultError(planningErrorMessage(err)), nil
	}

	return structured(result)
}

// planningErrorMessage names the failure category for the caller
func planningErrorMessage(err error) string {
	switch {
	case errors.Is(err, targets.ErrInvalidMacroSpec):
		return fmt.Sprintf("Invalid macro split: %v", err)
	case errors.Is(err, planner.ErrProposerUnavailable):
		return fmt.Sprintf("Plan generator temporarily unavailable, try again later: %v", err)
	case errors.Is(err, nutrients.ErrFoodNotFound):
		return fmt.Sprintf("A required food could not be resolved: %v", err)
	case errors.Is(err, planner.ErrAttemptsExhausted):
		return fmt.Sprintf("No plan within tolerance could be produced: %v", err)
	default:
		return fmt.Sprintf("Planning failed: %v", err)
	}
}

func (s *Server) handleComputeTargets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	base, adjustment, split, err := targetArgs(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	t, err := targets.Compute(base, adjustment, split)
	if err != nil {
		return mcp.NewToolResultError(planningErrorMessage(err)), nil
	}
	return structured(t)
}

func (s *Server) handleLookupFood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil || name == "" {
		return mcp.NewToolResultError("Missing required parameter 'name'"), nil
	}

	response := LookupFoodResponse{Query: name}
	food, err := s.foods.Resolve(ctx, name)
	switch {
	case err == nil:
		response.Found = true
		response.Match = food.Name
		response.Source = food.Source
		response.Profile = &food.Profile
	case errors.Is(err, nutrients.ErrFoodNotFound):
	default:
		s.log.Error("Food lookup failed", "food", name, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
	}

	return structured(response)
}

// structured returns both structured content and a JSON text fallback
func structured(v any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultStructured(v, string(responseJSON)), nil
}
