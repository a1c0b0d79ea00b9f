package llmjson

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func quizFields() []Field {
	return []Field{
		{Name: "question", Kind: KindString, Required: true},
		{Name: "options", Kind: KindStringArray, Required: true, Length: 4},
		{Name: "correct", Kind: KindChoice, Required: true, Min: 0, Max: 3, Default: 0},
		{Name: "explanation", Kind: KindText, MinLength: 30, Fallback: func(item map[string]interface{}) string {
			opts, _ := item["options"].([]string)
			idx, _ := item["correct"].(int)
			if idx >= 0 && idx < len(opts) {
				return fmt.Sprintf("Correct answer: %s.", opts[idx])
			}
			return "Correct answer."
		}},
	}
}

func quizSchema(max, min int) Schema {
	return Schema{Key: "questions", Fields: quizFields(), MaxItems: max, MinItems: min}
}

func quizItem(i int) map[string]interface{} {
	return map[string]interface{}{
		"question":    fmt.Sprintf("Question %d?", i),
		"options":     []interface{}{"A", "B", "C", "D"},
		"correct":     float64(i % 4),
		"explanation": fmt.Sprintf("Explanation number %d that is long enough to keep.", i),
	}
}

func quizBatch(n int) map[string]interface{} {
	items := make([]interface{}, n)
	for i := range items {
		items[i] = quizItem(i)
	}
	return map[string]interface{}{"questions": items}
}

// ==========================
// Scenario Tests
// ==========================

func TestDecode_FencedQuizWithClampedChoice(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"questions\":[{\"question\":\"Q1\",\"options\":[\"A\",\"B\",\"C\",\"D\"],\"correct\":5,\"explanation\":\"ok\"}]}\n```\nThanks!"

	res, err := Decode(raw, quizSchema(10, 1))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.Equal(t, "Q1", item["question"])
	assert.Equal(t, []string{"A", "B", "C", "D"}, item["options"])
	assert.Equal(t, 0, item["correct"])
	assert.Equal(t, "Correct answer: A.", item["explanation"])
	assert.Equal(t, StrategyDirect, res.Strategy)
	assert.False(t, res.Salvaged)
}

func TestDecode_TrailingGarbage(t *testing.T) {
	clean := `{"questions":[{"question":"Q1","options":["A","B","C","D"],"correct":2,"explanation":"Because C is the only one that fits here."}]}`

	res, err := Decode(clean+"  garbage", quizSchema(10, 1))
	require.NoError(t, err)

	want, err := Validate(directParse(t, clean), quizSchema(10, 1))
	require.NoError(t, err)
	assert.Equal(t, want.Items, res.Items)
}

func TestDecode_NoOpeningBrace(t *testing.T) {
	_, err := Decode("The model refused to answer.", quizSchema(10, 3))
	assert.Equal(t, ReasonNoOpeningBrace, ReasonOf(err))
}

func TestValidate_MissingAnswerDropped(t *testing.T) {
	schema := Schema{
		Key: "cards",
		Fields: []Field{
			{Name: "question", Kind: KindString, Required: true},
			{Name: "answer", Kind: KindString, Required: true},
		},
		MinItems: 3,
	}

	card := func(q, a string) map[string]interface{} {
		m := map[string]interface{}{"question": q}
		if a != "" {
			m["answer"] = a
		}
		return m
	}

	t.Run("enough survivors", func(t *testing.T) {
		parsed := map[string]interface{}{"cards": []interface{}{
			card("q1", "a1"), card("q2", ""), card("q3", "a3"), card("q4", "a4"),
		}}
		res, err := Validate(parsed, schema)
		require.NoError(t, err)
		require.Len(t, res.Items, 3)
		assert.Equal(t, "q1", res.Items[0]["question"])
		assert.Equal(t, "q3", res.Items[1]["question"])
		assert.Equal(t, 1, res.Dropped[ReasonMissingRequiredField])
		assert.Equal(t, 4, res.Considered)
	})

	t.Run("too few survivors", func(t *testing.T) {
		parsed := map[string]interface{}{"cards": []interface{}{
			card("q1", "a1"), card("q2", ""), card("q3", "a3"),
		}}
		_, err := Validate(parsed, schema)
		require.Error(t, err)
		assert.Equal(t, ReasonTooFewValidItems, ReasonOf(err))

		f := err.(*Failure)
		assert.Equal(t, 2, f.Valid)
		assert.Equal(t, 3, f.Required)
		assert.Equal(t, 1, f.Dropped[ReasonMissingRequiredField])
	})
}

// ==========================
// Property Tests
// ==========================

func TestValidate_Idempotent(t *testing.T) {
	parsed := quizBatch(6)
	items := parsed["questions"].([]interface{})
	items[1].(map[string]interface{})["correct"] = float64(9)
	items[2].(map[string]interface{})["explanation"] = "short"
	items[3].(map[string]interface{})["options"] = []interface{}{"A", "B"}
	items[4].(map[string]interface{})["extra"] = "ignored"

	first, err := Validate(parsed, quizSchema(4, 3))
	require.NoError(t, err)

	second, err := Validate(first.Object(), quizSchema(4, 3))
	require.NoError(t, err)

	assert.Equal(t, first.Items, second.Items)
	_, hasExtra := first.Items[3]["extra"]
	assert.False(t, hasExtra)
}

func TestValidate_ClampRetainsItem(t *testing.T) {
	for _, bad := range []interface{}{float64(-1), float64(4), float64(1.5), "2", true} {
		t.Run(fmt.Sprintf("%v", bad), func(t *testing.T) {
			item := quizItem(0)
			item["correct"] = bad
			res, err := Validate(map[string]interface{}{"questions": []interface{}{item}}, quizSchema(10, 1))
			require.NoError(t, err)
			require.Len(t, res.Items, 1)
			assert.Equal(t, 0, res.Items[0]["correct"])
		})
	}
}

func TestValidate_NullTakesDefault(t *testing.T) {
	item := quizItem(2)
	item["correct"] = nil
	item["explanation"] = nil

	res, err := Validate(map[string]interface{}{"questions": []interface{}{item}}, quizSchema(10, 1))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 0, res.Items[0]["correct"])
	assert.Equal(t, "Correct answer: A.", res.Items[0]["explanation"])
	assert.Empty(t, res.Dropped)

	// a present but null required string cannot be defaulted
	item = quizItem(3)
	item["question"] = nil
	_, err = Validate(map[string]interface{}{"questions": []interface{}{item}}, quizSchema(10, 1))
	assert.True(t, IsReason(err, ReasonTooFewValidItems))
	assert.Equal(t, 1, err.(*Failure).Dropped[ReasonWrongType])
}

func TestValidate_IntegerEdges(t *testing.T) {
	tests := []struct {
		name    string
		correct interface{}
		want    int
	}{
		{"json integer", json.Number("2"), 2},
		{"json float with zero fraction", json.Number("1.0"), 0},
		{"json exponent", json.Number("1e0"), 0},
		{"huge float", float64(1e300), 0},
		{"huge json integer", json.Number("99999999999999999999"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := quizItem(0)
			item["correct"] = tt.correct
			res, err := Validate(map[string]interface{}{"questions": []interface{}{item}}, quizSchema(10, 1))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Items[0]["correct"])
		})
	}

	assert.Equal(t, 0, mustCoerce(t, float64(1e300)))
	assert.Equal(t, 0, mustCoerce(t, json.Number("1e300")))
	assert.Equal(t, 20, mustCoerce(t, json.Number("20.7")))
}

func mustCoerce(t *testing.T, v interface{}) int {
	t.Helper()
	got, err := ValidateObject(map[string]interface{}{"calories": v}, []Field{{Name: "calories", Kind: KindInt, Required: true}})
	require.NoError(t, err)
	return got["calories"].(int)
}

func TestDecode_FloatChoiceFromText(t *testing.T) {
	raw := `{"questions":[{"question":"Q?","options":["A","B","C","D"],"correct":1.0,"explanation":"B is right because it is the only option that fits."}]}`

	res, err := Decode(raw, quizSchema(10, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Items[0]["correct"])
}

func TestValidate_ArityRejection(t *testing.T) {
	parsed := quizBatch(3)
	items := parsed["questions"].([]interface{})
	items[1].(map[string]interface{})["options"] = []interface{}{"A", "B", "C", "D", "E"}

	res, err := Validate(parsed, quizSchema(10, 1))
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Question 0?", res.Items[0]["question"])
	assert.Equal(t, "Question 2?", res.Items[1]["question"])
	assert.Equal(t, 1, res.Dropped[ReasonArityMismatch])
}

func TestValidate_TruncationPreservesOrder(t *testing.T) {
	res, err := Validate(quizBatch(8), quizSchema(5, 3))
	require.NoError(t, err)
	require.Len(t, res.Items, 5)
	for i, item := range res.Items {
		assert.Equal(t, fmt.Sprintf("Question %d?", i), item["question"])
	}
}

func TestValidate_MinimumThreshold(t *testing.T) {
	parsed := quizBatch(10)
	items := parsed["questions"].([]interface{})
	for i := 2; i < 10; i++ {
		delete(items[i].(map[string]interface{}), "question")
	}

	_, err := Validate(parsed, quizSchema(10, 3))
	require.Error(t, err)
	assert.True(t, IsReason(err, ReasonTooFewValidItems))
	assert.Equal(t, 8, err.(*Failure).Dropped[ReasonMissingRequiredField])
}

func TestValidate_MissingKey(t *testing.T) {
	_, err := Validate(map[string]interface{}{"items": []interface{}{}}, quizSchema(10, 3))
	assert.True(t, IsReason(err, ReasonTooFewValidItems))

	res, err := Validate(map[string]interface{}{"questions": "not a list"}, quizSchema(10, 0))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestValidate_NumericCoercion(t *testing.T) {
	schema := Schema{
		Key: "meals",
		Fields: []Field{
			{Name: "meal_type", Kind: KindString, Required: true},
			{Name: "food_items", Kind: KindStringArray, Required: true},
			{Name: "calories", Kind: KindInt},
			{Name: "proteins", Kind: KindInt},
			{Name: "fats", Kind: KindInt},
			{Name: "carbs", Kind: KindInt},
		},
		MinItems: 1,
	}
	parsed := map[string]interface{}{"meals": []interface{}{
		map[string]interface{}{
			"meal_type":  "breakfast",
			"food_items": []interface{}{"oats", "milk", float64(2)},
			"calories":   "450",
			"proteins":   float64(20.7),
			"fats":       "a lot",
			"carbs":      " 55.2 ",
		},
	}}

	res, err := Validate(parsed, schema)
	require.NoError(t, err)
	meal := res.Items[0]
	assert.Equal(t, []string{"oats", "milk", "2"}, meal["food_items"])
	assert.Equal(t, 450, meal["calories"])
	assert.Equal(t, 20, meal["proteins"])
	assert.Equal(t, 0, meal["fats"])
	assert.Equal(t, 55, meal["carbs"])
}

func TestValidate_NonObjectItems(t *testing.T) {
	parsed := map[string]interface{}{"questions": []interface{}{"loose string", quizItem(0), float64(3)}}

	res, err := Validate(parsed, quizSchema(10, 1))
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 2, res.Dropped[ReasonWrongType])
}

func TestValidate_ObjectArrayField(t *testing.T) {
	schema := Schema{
		Key: "weeks",
		Fields: []Field{
			{Name: "week", Kind: KindInt, Required: true},
			{Name: "sessions", Kind: KindObjectArray, Item: []Field{
				{Name: "day", Kind: KindString, Required: true},
				{Name: "exercises", Kind: KindStringArray, Default: []string{}},
			}},
		},
		MinItems: 1,
	}
	parsed := map[string]interface{}{"weeks": []interface{}{
		map[string]interface{}{
			"week": float64(1),
			"sessions": []interface{}{
				map[string]interface{}{"day": "monday", "exercises": []interface{}{"squat"}},
				map[string]interface{}{"exercises": []interface{}{"bench"}},
				"junk",
				map[string]interface{}{"day": "friday"},
			},
		},
	}}

	res, err := Validate(parsed, schema)
	require.NoError(t, err)
	sessions := res.Items[0]["sessions"].([]map[string]interface{})
	require.Len(t, sessions, 2)
	assert.Equal(t, "monday", sessions[0]["day"])
	assert.Equal(t, []string{}, sessions[1]["exercises"])

	again, err := Validate(res.Object(), schema)
	require.NoError(t, err)
	assert.Equal(t, res.Items, again.Items)
}

// ==========================
// Single Object Tests
// ==========================

func recipeFields() []Field {
	return []Field{
		{Name: "title", Kind: KindString, Required: true},
		{Name: "ingredients", Kind: KindStringArray, Required: true, Default: []string{}},
		{Name: "instructions", Kind: KindText, Required: true, MinLength: 50, Default: "Cook according to the recipe."},
		{Name: "calories", Kind: KindInt, Required: true},
		{Name: "proteins", Kind: KindInt, Required: true},
		{Name: "fats", Kind: KindInt, Required: true},
		{Name: "carbs", Kind: KindInt, Required: true},
	}
}

func TestValidateObject(t *testing.T) {
	t.Run("coerces fields", func(t *testing.T) {
		parsed := map[string]interface{}{
			"title":        "Borscht",
			"ingredients":  "beets, cabbage",
			"instructions": "Boil.",
			"calories":     "320",
			"proteins":     float64(12),
			"fats":         "n/a",
			"carbs":        float64(40.9),
		}
		got, err := ValidateObject(parsed, recipeFields())
		require.NoError(t, err)
		assert.Equal(t, []string{}, got["ingredients"])
		assert.Equal(t, "Cook according to the recipe.", got["instructions"])
		assert.Equal(t, 320, got["calories"])
		assert.Equal(t, 12, got["proteins"])
		assert.Equal(t, 0, got["fats"])
		assert.Equal(t, 40, got["carbs"])
	})

	t.Run("null values take defaults", func(t *testing.T) {
		parsed := map[string]interface{}{
			"title":        "Soup",
			"ingredients":  []interface{}{"water"},
			"instructions": nil,
			"calories":     nil,
			"proteins":     json.Number("5"),
			"fats":         nil,
			"carbs":        json.Number("10"),
		}
		got, err := ValidateObject(parsed, recipeFields())
		require.NoError(t, err)
		assert.Equal(t, "Cook according to the recipe.", got["instructions"])
		assert.Equal(t, 0, got["calories"])
		assert.Equal(t, 5, got["proteins"])
		assert.Equal(t, 0, got["fats"])
	})

	t.Run("lists missing keys", func(t *testing.T) {
		_, err := ValidateObject(map[string]interface{}{"title": "Soup", "calories": float64(100)}, recipeFields())
		require.Error(t, err)
		f := err.(*Failure)
		assert.Equal(t, ReasonMissingRequiredField, f.Reason)
		assert.Equal(t, []string{"ingredients", "instructions", "proteins", "fats", "carbs"}, f.Missing)
	})
}
