package nutrients

import (
	"strings"
	"unicode"
)

// descriptors are preparation words dropped when a name has no direct match
var descriptors = map[string]bool{
	"cooked": true, "raw": true, "grilled": true, "boiled": true, "baked": true,
	"steamed": true, "roasted": true, "fresh": true, "frozen": true, "skinless": true,
	"boneless": true, "large": true, "medium": true, "small": true, "organic": true,
	"plain": true, "dry": true, "uncooked": true,
}

// Standardize lowercases a food name, drops parenthesised notes and punctuation and
// collapses whitespace. It is the cache key for every lookup.
func Standardize(name string) string {
	var b strings.Builder
	depth := 0
	for _, r := range strings.ToLower(name) {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// stripDescriptors removes preparation words from a standardized name
func stripDescriptors(key string) string {
	words := strings.Fields(key)
	kept := words[:0]
	for _, w := range words {
		if !descriptors[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// fallbackMatch finds the best built-in entry for a standardized name: exact, then
// without descriptors, then the longest table key contained as whole words
func fallbackMatch(key string) (string, bool) {
	if _, ok := fallbackProfiles[key]; ok {
		return key, true
	}
	stripped := stripDescriptors(key)
	if _, ok := fallbackProfiles[stripped]; ok {
		return stripped, true
	}

	padded := " " + stripped + " "
	best := ""
	for candidate := range fallbackProfiles {
		if strings.Contains(padded, " "+candidate+" ") && len(candidate) > len(best) {
			best = candidate
		}
	}
	return best, best != ""
}
