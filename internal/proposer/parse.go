package proposer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Response is a decoded proposer reply
type Response struct {
	Meals     []ProposedMeal `json:"meals"`
	Notes     FlexText       `json:"notes"`
	Reasoning FlexText       `json:"reasoning"`
}

// ProposedMeal is one meal as suggested by the proposer
type ProposedMeal struct {
	Name  string         `json:"name"`
	Foods []ProposedFood `json:"foods"`
}

// ProposedFood is a food line before nutrient lookup
type ProposedFood struct {
	Name        string   `json:"name"`
	Quantity    Quantity `json:"quantity"`
	Unit        string   `json:"unit"`
	Reasoning   string   `json:"reasoning"`
	Alternative bool     `json:"alternative"`

	// Grams is Quantity converted with Unit, filled in by Parse
	Grams float64 `json:"-"`
}

// Quantity accepts either a JSON number or a string such as "150g" or "1.5 kg"
type Quantity struct {
	Value float64
	Unit  string
}

var quantityPattern = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*([a-zA-Z]*)`)

// UnmarshalJSON implements json.Unmarshaler
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*q = Quantity{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*q = Quantity{Value: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("quantity must be a number or string: %s", data)
	}
	m := quantityPattern.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("quantity %q has no number", s)
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return fmt.Errorf("quantity %q: %w", s, err)
	}
	*q = Quantity{Value: v, Unit: strings.ToLower(m[2])}
	return nil
}

// FlexText accepts a string or a list of strings (joined with newlines)
type FlexText string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexText(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = FlexText(strings.Join(list, "\n"))
		return nil
	}
	*f = ""
	return nil
}

// grams per unit; an empty unit means grams
var unitGrams = map[string]float64{
	"":       1,
	"g":      1,
	"gr":     1,
	"gram":   1,
	"grams":  1,
	"kg":     1000,
	"ml":     1,
	"l":      1000,
	"liter":  1000,
	"litre":  1000,
	"oz":     28.3495,
	"lb":     453.592,
	"lbs":    453.592,
	"pound":  453.592,
	"pounds": 453.592,
}

// ToGrams converts a quantity in the given unit. Units that cannot be converted are
// reported as false.
func ToGrams(value float64, unit string) (float64, bool) {
	factor, ok := unitGrams[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, false
	}
	return value * factor, true
}

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	curlyQuotes          = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// sanitizers run cumulatively; decoding is attempted after each one
var sanitizers = []func(string) string{
	stripFences,
	outerObject,
	curlyQuotes.Replace,
	func(s string) string { return trailingCommaPattern.ReplaceAllString(s, "$1") },
	singleToDoubleQuotes,
}

// Parse extracts a plan from proposer free text. It tries the raw text first and then
// progressively more aggressive clean-ups: markdown fences, the outermost object, curly
// quotes, trailing commas and single-quoted strings.
func Parse(text string) (*Response, error) {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	resp, lastErr := decode(candidate)
	for _, sanitize := range sanitizers {
		if resp != nil {
			break
		}
		candidate = sanitize(candidate)
		resp, lastErr = decode(candidate)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, lastErr)
	}

	if err := resp.normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return resp, nil
}

func decode(s string) (*Response, error) {
	var r Response
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// normalize checks the plan shape and converts every quantity to grams
func (r *Response) normalize() error {
	if len(r.Meals) == 0 {
		return fmt.Errorf("no meals")
	}
	for i := range r.Meals {
		meal := &r.Meals[i]
		if meal.Name == "" {
			meal.Name = fmt.Sprintf("Meal %d", i+1)
		}
		var foods []ProposedFood
		for _, f := range meal.Foods {
			f.Name = strings.TrimSpace(f.Name)
			if f.Name == "" {
				continue
			}
			unit := f.Unit
			if unit == "" {
				unit = f.Quantity.Unit
			}
			grams, ok := ToGrams(f.Quantity.Value, unit)
			if !ok {
				// unconvertible units are read as grams; the loop corrects portions anyway
				grams = f.Quantity.Value
			}
			if grams < 0 {
				return fmt.Errorf("negative quantity for %q", f.Name)
			}
			f.Grams = grams
			foods = append(foods, f)
		}
		meal.Foods = foods
	}
	return nil
}

func stripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func outerObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// singleToDoubleQuotes rewrites single-quoted strings as JSON strings. Apostrophes inside
// double-quoted strings are kept.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble, inSingle, escaped := false, false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			if inSingle && r == '\'' {
				b.WriteRune('\'')
				continue
			}
			b.WriteRune('\\')
			b.WriteRune(r)
			continue
		case r == '\\':
			escaped = true
			continue
		case inDouble:
			if r == '"' {
				inDouble = false
			}
		case inSingle:
			if r == '\'' {
				inSingle = false
				b.WriteRune('"')
				continue
			}
			if r == '"' {
				b.WriteString(`\"`)
				continue
			}
		case r == '"':
			inDouble = true
		case r == '\'':
			inSingle = true
			b.WriteRune('"')
			continue
		}
		b.WriteRune(r)
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}
