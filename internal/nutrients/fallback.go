package nutrients

import "github.com/noot-app/macroplan-mcp-server/internal/types"

// FallbackSource is the last-resort data source: a static table of pure, single-ingredient
// foods with well known values. It is consulted only after every provider came back empty.
const FallbackSource = "builtin"

var fallbackProfiles = map[string]types.NutrientProfile{
	"chicken breast":    {Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6},
	"turkey breast":     {Calories: 135, Protein: 30, Carbs: 0, Fat: 1},
	"egg white":         {Calories: 52, Protein: 10.9, Carbs: 0.7, Fat: 0.2},
	"egg":               {Calories: 143, Protein: 12.6, Carbs: 0.7, Fat: 9.5},
	"whey protein":      {Calories: 400, Protein: 80, Carbs: 8, Fat: 6},
	"tuna":              {Calories: 116, Protein: 25.5, Carbs: 0, Fat: 0.8},
	"cod":               {Calories: 82, Protein: 17.8, Carbs: 0, Fat: 0.7},
	"salmon":            {Calories: 208, Protein: 20, Carbs: 0, Fat: 13},
	"lean beef":         {Calories: 176, Protein: 26, Carbs: 0, Fat: 8},
	"greek yogurt":      {Calories: 59, Protein: 10.3, Carbs: 3.6, Fat: 0.4},
	"cottage cheese":    {Calories: 98, Protein: 11.1, Carbs: 3.4, Fat: 4.3},
	"tofu":              {Calories: 144, Protein: 17.3, Carbs: 2.8, Fat: 8.7},
	"white rice":        {Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3},
	"brown rice":        {Calories: 123, Protein: 2.7, Carbs: 25.6, Fat: 1},
	"oats":              {Calories: 389, Protein: 16.9, Carbs: 66.3, Fat: 6.9},
	"potato":            {Calories: 77, Protein: 2, Carbs: 17, Fat: 0.1},
	"sweet potato":      {Calories: 86, Protein: 1.6, Carbs: 20.1, Fat: 0.1},
	"pasta":             {Calories: 158, Protein: 5.8, Carbs: 30.9, Fat: 0.9},
	"quinoa":            {Calories: 120, Protein: 4.4, Carbs: 21.3, Fat: 1.9},
	"banana":            {Calories: 89, Protein: 1.1, Carbs: 22.8, Fat: 0.3},
	"apple":             {Calories: 52, Protein: 0.3, Carbs: 13.8, Fat: 0.2},
	"blueberries":       {Calories: 57, Protein: 0.7, Carbs: 14.5, Fat: 0.3},
	"honey":             {Calories: 304, Protein: 0.3, Carbs: 82.4, Fat: 0},
	"broccoli":          {Calories: 34, Protein: 2.8, Carbs: 6.6, Fat: 0.4},
	"spinach":           {Calories: 23, Protein: 2.9, Carbs: 3.6, Fat: 0.4},
	"olive oil":         {Calories: 884, Protein: 0, Carbs: 0, Fat: 100},
	"butter":            {Calories: 717, Protein: 0.9, Carbs: 0.1, Fat: 81.1},
	"almonds":           {Calories: 579, Protein: 21.2, Carbs: 21.6, Fat: 49.9},
	"walnuts":           {Calories: 654, Protein: 15.2, Carbs: 13.7, Fat: 65.2},
	"peanut butter":     {Calories: 588, Protein: 25, Carbs: 20, Fat: 50},
	"avocado":           {Calories: 160, Protein: 2, Carbs: 8.5, Fat: 14.7},
	"cheddar cheese":    {Calories: 403, Protein: 24.9, Carbs: 1.3, Fat: 33.1},
	"whole milk":        {Calories: 61, Protein: 3.2, Carbs: 4.8, Fat: 3.3},
	"skim milk":         {Calories: 34, Protein: 3.4, Carbs: 5, Fat: 0.1},
	"whole wheat bread": {Calories: 247, Protein: 13, Carbs: 41, Fat: 3.4},
}

// Fallback looks up a standardized name in the built-in table
func Fallback(key string) (types.NutrientProfile, bool) {
	p, ok := fallbackProfiles[key]
	return p, ok
}
