package foods

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// MockEngine is an in-memory provider for tests and offline runs
type MockEngine struct {
	mu    sync.Mutex
	foods []Candidate
	err   error
	calls int
	log   *slog.Logger
}

var _ Provider = (*MockEngine)(nil)

// NewMockEngine creates a mock provider with a small catalogue of whole foods
func NewMockEngine(logger *slog.Logger) *MockEngine {
	return &MockEngine{
		log: logger,
		foods: []Candidate{
			{Name: "Chicken breast, cooked", Profile: types.NutrientProfile{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6}},
			{Name: "White rice, cooked", Profile: types.NutrientProfile{Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3}},
			{Name: "Rolled oats", Profile: types.NutrientProfile{Calories: 389, Protein: 16.9, Carbs: 66.3, Fat: 6.9}},
			{Name: "Whole egg", Profile: types.NutrientProfile{Calories: 143, Protein: 12.6, Carbs: 0.7, Fat: 9.5}},
			{Name: "Greek yogurt, nonfat", Profile: types.NutrientProfile{Calories: 59, Protein: 10.3, Carbs: 3.6, Fat: 0.4}},
			{Name: "Banana", Profile: types.NutrientProfile{Calories: 89, Protein: 1.1, Carbs: 22.8, Fat: 0.3}},
			{Name: "Broccoli", Profile: types.NutrientProfile{Calories: 34, Protein: 2.8, Carbs: 6.6, Fat: 0.4}},
			{Name: "Salmon, atlantic", Profile: types.NutrientProfile{Calories: 208, Protein: 20, Carbs: 0, Fat: 13}},
			{Name: "Sweet potato, baked", Profile: types.NutrientProfile{Calories: 90, Protein: 2, Carbs: 20.7, Fat: 0.2}},
			{Name: "Almonds", Profile: types.NutrientProfile{Calories: 579, Protein: 21.2, Carbs: 21.6, Fat: 49.9}},
			{Name: "Olive oil", Profile: types.NutrientProfile{Calories: 884, Protein: 0, Carbs: 0, Fat: 100}},
			{Name: "Avocado", Profile: types.NutrientProfile{Calories: 160, Protein: 2, Carbs: 8.5, Fat: 14.7}},
		},
	}
}

// Name identifies the provider in logs and results
func (m *MockEngine) Name() string {
	return "mock"
}

// Search returns catalogue entries whose name contains the query (case-insensitive)
func (m *MockEngine) Search(ctx context.Context, name string, limit int) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, m.err
	}

	var results []Candidate
	for _, food := range m.foods {
		if name != "" && !contains(food.Name, name) {
			continue
		}
		food.Source = m.Name()
		results = append(results, food)
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// SetError sets an error to be returned by the mock
func (m *MockEngine) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetFoods replaces the catalogue
func (m *MockEngine) SetFoods(foods []Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foods = foods
}

// Calls returns how many searches were made
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// contains checks if a string contains a substring (case-insensitive)
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
