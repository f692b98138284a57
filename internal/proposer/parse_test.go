package proposer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanPlan = `{"meals":[{"name":"Breakfast","foods":[{"name":"oats","quantity":80,"unit":"g","reasoning":"carbs"}]}],"notes":"n","reasoning":"r"}`

func TestParse_Strategies(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"raw", cleanPlan},
		{"fenced", "Here you go:\n```json\n" + cleanPlan + "\n```\nEnjoy!"},
		{"surrounding prose", "Sure! " + cleanPlan + " Let me know."},
		{"curly quotes", `{“meals”:[{“name”:“Breakfast”,“foods”:[{“name”:“oats”,“quantity”:80,“unit”:“g”}]}]}`},
		{"trailing commas", `{"meals":[{"name":"Breakfast","foods":[{"name":"oats","quantity":80,"unit":"g",},],},],}`},
		{"single quotes", `{'meals':[{'name':'Breakfast','foods':[{'name':'oats','quantity':80,'unit':'g'}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse(tt.text)
			require.NoError(t, err)
			require.Len(t, resp.Meals, 1)
			assert.Equal(t, "Breakfast", resp.Meals[0].Name)
			require.Len(t, resp.Meals[0].Foods, 1)
			assert.Equal(t, "oats", resp.Meals[0].Foods[0].Name)
			assert.Equal(t, 80.0, resp.Meals[0].Foods[0].Grams)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", "   "},
		{"prose only", "I cannot help with that."},
		{"no meals", `{"meals":[],"notes":"none"}`},
		{"broken", `{"meals":[{"name":"Lunch","foods":[`},
		{"negative", `{"meals":[{"name":"Lunch","foods":[{"name":"rice","quantity":-5}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParse_QuantitiesAndUnits(t *testing.T) {
	text := `{"meals":[{"name":"Lunch","foods":[
		{"name":"rice","quantity":"150g"},
		{"name":"chicken","quantity":0.25,"unit":"kg"},
		{"name":"milk","quantity":"1.5 l"},
		{"name":"steak","quantity":8,"unit":"oz"},
		{"name":"eggs","quantity":2,"unit":"pieces"},
		{"name":"skyr","quantity":200,"unit":"g","alternative":true},
		{"name":"","quantity":10}
	]}],"notes":["one","two"]}`

	resp, err := Parse(text)
	require.NoError(t, err)

	foods := resp.Meals[0].Foods
	require.Len(t, foods, 6)
	assert.Equal(t, 150.0, foods[0].Grams)
	assert.Equal(t, 250.0, foods[1].Grams)
	assert.Equal(t, 1500.0, foods[2].Grams)
	assert.InDelta(t, 226.8, foods[3].Grams, 0.01)
	assert.Equal(t, 2.0, foods[4].Grams)
	assert.True(t, foods[5].Alternative)
	assert.Equal(t, FlexText("one\ntwo"), resp.Notes)
}

func TestParse_DefaultsMealName(t *testing.T) {
	resp, err := Parse(`{"meals":[{"foods":[{"name":"apple","quantity":100}]}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Meal 1", resp.Meals[0].Name)
}

func TestSingleToDoubleQuotes(t *testing.T) {
	assert.Equal(t, `{"a": "it's"}`, singleToDoubleQuotes(`{"a": "it's"}`))
	assert.Equal(t, `{"a": "say \"hi\""}`, singleToDoubleQuotes(`{'a': 'say "hi"'}`))
	assert.Equal(t, `{"a": "don't"}`, singleToDoubleQuotes(`{'a': 'don\'t'}`))
}

func TestToGrams(t *testing.T) {
	g, ok := ToGrams(2, "LB")
	require.True(t, ok)
	assert.InDelta(t, 907.184, g, 0.001)

	_, ok = ToGrams(1, "cup")
	assert.False(t, ok)
}
