package types

import "strings"

// Constraints narrow which foods the proposer may use.
// A non-empty AllowedFoods list switches planning into strict mode.
type Constraints struct {
	AllowedFoods  []string `json:"allowed_foods,omitempty" yaml:"allowed_foods"`
	ExcludedFoods []string `json:"excluded_foods,omitempty" yaml:"excluded_foods"`
	DietType      string   `json:"diet_type,omitempty" yaml:"diet_type"`
	Notes         string   `json:"notes,omitempty" yaml:"notes"`
}

// Strict reports whether only allow-listed foods may appear in a plan
func (c Constraints) Strict() bool {
	return len(c.AllowedFoods) > 0
}

// Excludes reports whether a food name is on the exclusion list, compared case-insensitively
func (c Constraints) Excludes(name string) bool {
	return containsFold(c.ExcludedFoods, name)
}

// Allows reports whether a food name passes the allow list, compared case-insensitively.
// Every food passes when the list is empty.
func (c Constraints) Allows(name string) bool {
	if !c.Strict() {
		return true
	}
	return containsFold(c.AllowedFoods, name)
}

func containsFold(list []string, name string) bool {
	n := strings.TrimSpace(name)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), n) {
			return true
		}
	}
	return false
}
