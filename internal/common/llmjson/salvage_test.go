package llmjson

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenQuiz renders n quiz items without commas between them and without
// closing the root object, so none of the extraction strategies succeed.
func brokenQuiz(n int) string {
	var b strings.Builder
	b.WriteString("Sure, here are your questions:\n{\"questions\": [\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			"  {\"question\": \"Question %d?\", \"options\": [\"A%d\", \"B%d\", \"C%d\", \"D%d\"], \"correct\": %d, \"explanation\": \"Option %d is right because of rule number %d.\"}\n",
			i, i, i, i, i, i%4, i%4, i)
	}
	b.WriteString("]\n")
	return b.String()
}

func TestNewItemPattern(t *testing.T) {
	_, err := NewItemPattern("", quizFields()...)
	assert.Error(t, err)

	_, err = NewItemPattern("questions")
	assert.Error(t, err)

	_, err = NewItemPattern("weeks", Field{Name: "sessions", Kind: KindObjectArray})
	assert.Error(t, err)

	p, err := NewItemPattern("questions", quizFields()...)
	require.NoError(t, err)
	assert.Equal(t, 1, p.MinItems)
	assert.Equal(t, 3, p.WithMinItems(3).MinItems)
	assert.Equal(t, 1, p.MinItems)
}

func TestSalvage_RecoversItems(t *testing.T) {
	raw := brokenQuiz(10)

	_, err := Extract(raw)
	require.True(t, IsReason(err, ReasonUnparseable))

	parsed, err := Salvage(raw, MustItemPattern("questions", quizFields()...))
	require.NoError(t, err)

	items := parsed["questions"].([]interface{})
	require.Len(t, items, 10)

	first := items[0].(map[string]interface{})
	assert.Equal(t, "Question 0?", first["question"])
	assert.Equal(t, []interface{}{"A0", "B0", "C0", "D0"}, first["options"])
	assert.Equal(t, 0, first["correct"])

	last := items[9].(map[string]interface{})
	assert.Equal(t, 1, last["correct"])
}

func TestSalvage_UnescapesStrings(t *testing.T) {
	raw := `{"questions": [{"question": "Who said \"hi\"?", "options": ["a", "b", "c", "d"], "correct": 2, "explanation": "Line\nbreak"} oops`

	parsed, err := Salvage(raw, MustItemPattern("questions", quizFields()...))
	require.NoError(t, err)

	item := parsed["questions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, `Who said "hi"?`, item["question"])
	assert.Equal(t, "Line\nbreak", item["explanation"])
}

func TestSalvage_Insufficient(t *testing.T) {
	p := MustItemPattern("questions", quizFields()...).WithMinItems(3)

	_, err := Salvage("no structure here at all", p)
	assert.True(t, IsReason(err, ReasonSalvageInsufficient))

	_, err = Salvage(brokenQuiz(2), p)
	require.Error(t, err)
	f := err.(*Failure)
	assert.Equal(t, ReasonSalvageInsufficient, f.Reason)
	assert.Equal(t, 2, f.Valid)
	assert.Equal(t, 3, f.Required)
}

func TestDecode_Salvage(t *testing.T) {
	schema := quizSchema(5, 3)
	schema.Salvage = MustItemPattern("questions", quizFields()...)

	t.Run("ten fragments", func(t *testing.T) {
		res, err := Decode(brokenQuiz(10), schema)
		require.NoError(t, err)
		assert.True(t, res.Salvaged)
		require.Len(t, res.Items, 5)
		assert.Equal(t, []string{"A0", "B0", "C0", "D0"}, res.Items[0]["options"])
		assert.Equal(t, "Question 4?", res.Items[4]["question"])
	})

	t.Run("salvaged items fail validation", func(t *testing.T) {
		// Five options per item, so every salvaged item is dropped for arity.
		raw := strings.ReplaceAll(brokenQuiz(10), `"options": [`, `"options": ["X", `)

		_, err := Decode(raw, schema)
		require.Error(t, err)
		f := err.(*Failure)
		assert.Equal(t, ReasonSalvageInsufficient, f.Reason)
		assert.Equal(t, 0, f.Valid)
		assert.Equal(t, 10, f.Dropped[ReasonArityMismatch])
	})

	t.Run("no braces skips salvage", func(t *testing.T) {
		_, err := Decode(`I'm sorry, I cannot help with that. "questions"`, schema)
		assert.True(t, IsReason(err, ReasonNoOpeningBrace))
	})

	t.Run("no closing brace skips salvage", func(t *testing.T) {
		_, err := Decode(`{"questions": [ {"question": "Q?"`, schema)
		assert.True(t, IsReason(err, ReasonNoClosingBrace))
	})

	t.Run("without pattern", func(t *testing.T) {
		_, err := Decode(brokenQuiz(10), quizSchema(5, 3))
		assert.True(t, IsReason(err, ReasonUnparseable))
	})
}
