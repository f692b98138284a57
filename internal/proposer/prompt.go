package proposer

import (
	"fmt"
	"math"
	"strings"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// HistoryContext is how many recent attempts an adjustment prompt summarizes
const HistoryContext = 3

const responseFormat = `RESPONSE FORMAT:
Return ONLY a valid JSON object in this exact structure, with no commentary:
{
  "meals": [
    {
      "name": "Breakfast",
      "foods": [
        {"name": "oats", "quantity": 80, "unit": "g", "reasoning": "slow carbs"},
        {"name": "greek yogurt", "quantity": 200, "unit": "g", "reasoning": "protein"},
        {"name": "skyr", "quantity": 200, "unit": "g", "reasoning": "swap for yogurt", "alternative": true}
      ]
    }
  ],
  "notes": "short notes for the user",
  "reasoning": "how the plan reaches the targets"
}
`

// BuildInitialPrompt asks for a full plan from scratch
func BuildInitialPrompt(t types.MacroTargets, mealCount int, c types.Constraints) string {
	var b strings.Builder

	b.WriteString("You are a professional nutritionist. Create a one-day meal plan that hits the macro targets below as precisely as possible.\n\n")
	writeTargets(&b, t, mealCount)
	writeConstraints(&b, c)

	b.WriteString("RULES:\n")
	fmt.Fprintf(&b, "1. Exactly %d meals.\n", mealCount)
	b.WriteString("2. All quantities in GRAMS (use unit \"g\"), never cups or pieces.\n")
	b.WriteString("3. Prefer single-ingredient whole foods with well known nutrition values.\n")
	b.WriteString("4. Foods marked \"alternative\": true are optional swaps and do not count toward the totals.\n")
	b.WriteString("5. Calories within 150 kcal, each macro within 15 g and within 3 percentage points of its share.\n\n")

	b.WriteString(responseFormat)
	return b.String()
}

// BuildAdjustmentPrompt asks the proposer to keep the most recent plan's foods and adjust
// portions, using the signed deviations of the recent attempts as guidance
func BuildAdjustmentPrompt(t types.MacroTargets, mealCount int, c types.Constraints, history []types.AttemptRecord) string {
	var b strings.Builder

	b.WriteString("You are a professional nutritionist. The previous meal plan missed its targets. Keep the same foods where possible and ADJUST PORTIONS so the totals land on target.\n\n")
	writeTargets(&b, t, mealCount)
	writeConstraints(&b, c)

	recent := history
	if len(recent) > HistoryContext {
		recent = recent[len(recent)-HistoryContext:]
	}
	if len(recent) > 0 {
		b.WriteString("PREVIOUS ATTEMPTS (most recent last):\n")
		for _, a := range recent {
			writeAttemptSummary(&b, a, t)
		}
		b.WriteString("\n")
	}

	if last := lastPlan(history); last != nil {
		b.WriteString("MOST RECENT PLAN:\n")
		for _, meal := range last.Meals {
			fmt.Fprintf(&b, "- %s:\n", meal.Name)
			for _, f := range meal.Foods {
				alt := ""
				if f.IsAlternative {
					alt = " (alternative)"
				}
				fmt.Fprintf(&b, "  * %.0fg %s%s\n", f.QuantityGrams, f.Name, alt)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Keep the same meals and foods unless a food makes the targets unreachable.\n")
	b.WriteString("2. Change quantities to close the gaps listed above. Positive numbers mean ADD, negative mean REMOVE.\n")
	b.WriteString("3. All quantities in GRAMS.\n\n")

	b.WriteString(responseFormat)
	return b.String()
}

func writeTargets(b *strings.Builder, t types.MacroTargets, mealCount int) {
	b.WriteString("DAILY TARGETS:\n")
	fmt.Fprintf(b, "- Calories: %.0f kcal\n", t.Calories)
	fmt.Fprintf(b, "- Protein: %.1fg (%.0f%% of calories)\n", t.ProteinGrams, t.Split.Protein)
	fmt.Fprintf(b, "- Carbs: %.1fg (%.0f%% of calories)\n", t.CarbsGrams, t.Split.Carbs)
	fmt.Fprintf(b, "- Fat: %.1fg (%.0f%% of calories)\n", t.FatGrams, t.Split.Fat)
	if mealCount > 0 {
		fmt.Fprintf(b, "- Per meal, roughly: %.0f kcal, %.1fg protein, %.1fg carbs, %.1fg fat\n",
			t.Calories/float64(mealCount), t.ProteinGrams/float64(mealCount),
			t.CarbsGrams/float64(mealCount), t.FatGrams/float64(mealCount))
	}
	b.WriteString("\n")
}

func writeConstraints(b *strings.Builder, c types.Constraints) {
	if !c.Strict() && len(c.ExcludedFoods) == 0 && c.DietType == "" && c.Notes == "" {
		return
	}
	b.WriteString("CONSTRAINTS:\n")
	if c.DietType != "" {
		fmt.Fprintf(b, "- Diet type: %s\n", c.DietType)
	}
	if c.Strict() {
		fmt.Fprintf(b, "- Use ONLY these foods, spelled exactly as given: %s\n", strings.Join(c.AllowedFoods, ", "))
	}
	if len(c.ExcludedFoods) > 0 {
		fmt.Fprintf(b, "- Never use: %s\n", strings.Join(c.ExcludedFoods, ", "))
	}
	if c.Notes != "" {
		fmt.Fprintf(b, "- Notes: %s\n", c.Notes)
	}
	b.WriteString("\n")
}

func writeAttemptSummary(b *strings.Builder, a types.AttemptRecord, t types.MacroTargets) {
	if a.ResultPlan == nil {
		fmt.Fprintf(b, "- Attempt %d failed: %s\n", a.AttemptNumber, a.Err)
		return
	}
	totals := a.Validation.ActualTotals
	fmt.Fprintf(b, "- Attempt %d: %.0f kcal, %.1fg protein, %.1fg carbs, %.1fg fat. Needed: calories %s, protein %s, carbs %s, fat %s\n",
		a.AttemptNumber, totals.Calories, totals.Protein, totals.Carbs, totals.Fat,
		signed(t.Calories-totals.Calories, "kcal"),
		signed(t.ProteinGrams-totals.Protein, "g"),
		signed(t.CarbsGrams-totals.Carbs, "g"),
		signed(t.FatGrams-totals.Fat, "g"))
	for _, e := range a.Validation.Errors {
		fmt.Fprintf(b, "    * %s\n", e)
	}
}

func signed(v float64, unit string) string {
	v = math.Round(v*10) / 10
	if v >= 0 {
		return fmt.Sprintf("+%.1f%s", v, unit)
	}
	return fmt.Sprintf("%.1f%s", v, unit)
}

func lastPlan(history []types.AttemptRecord) *types.Plan {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ResultPlan != nil {
			return history[i].ResultPlan
		}
	}
	return nil
}
