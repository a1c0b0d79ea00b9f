package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directParse(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]interface{}
	require.NoError(t, dec.Decode(&m))
	return m
}

// ==========================
// Strategy Tests
// ==========================

func TestExtract_Identity(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"a":1}`,
		`{"questions":[{"question":"Q1","options":["A","B","C","D"],"correct":1}]}`,
		`{"nested":{"deep":{"x":[1,2,{"y":"}"}]}},"s":"brace { inside"}`,
		`{"unicode":"Привет, мир","emoji":"🙂"}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			ext, err := Extract(in)
			require.NoError(t, err)
			assert.Equal(t, directParse(t, in), ext.Object)
			assert.Equal(t, StrategyDirect, ext.Strategy)
		})
	}
}

func TestExtract_FencesAndProse(t *testing.T) {
	clean := `{"cards":[{"question":"What is H2O?","answer":"Water"}]}`

	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n" + clean + "\n```"},
		{"bare fence", "```\n" + clean + "\n```"},
		{"upper fence", "```JSON\n" + clean + "\n```"},
		{"leading prose", "Here is the result:\n" + clean},
		{"fence and trailing prose", "Sure!\n```json\n" + clean + "\n```\nThanks!"},
		{"surrounding whitespace", "\n\n   " + clean + "   \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := Extract(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, directParse(t, clean), ext.Object)
		})
	}
}

func TestExtract_TrailingGarbage(t *testing.T) {
	clean := `{"questions":[{"question":"Q1","options":["A","B","C","D"],"correct":0}]}`
	raw := clean + `  garbage } more}`

	ext, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, StrategyTrailingTrim, ext.Strategy)
	assert.Equal(t, directParse(t, clean), ext.Object)
	assert.Equal(t, len(`  garbage } more}`), ext.Trimmed)
}

func TestExtract_ControlCharacters(t *testing.T) {
	raw := "{\"explanation\":\"line one\nline two\r\",\x00\"n\":1}"

	ext, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, StrategyControlScrub, ext.Strategy)
	assert.Equal(t, "line one line two", ext.Object["explanation"])
	assert.Equal(t, json.Number("1"), ext.Object["n"])
}

func TestExtract_SecondObjectIgnored(t *testing.T) {
	raw := `{"a":{"b":1}} and then {"c": oops}`

	ext, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, StrategyTrailingTrim, ext.Strategy)
	assert.Equal(t, map[string]interface{}{"a": map[string]interface{}{"b": json.Number("1")}}, ext.Object)
}

func TestFirstBalanced(t *testing.T) {
	content := `noise {"a":{"b":1}} tail {"c":2}`
	got, ok := firstBalanced(content, 6)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}}`, got)

	_, ok = firstBalanced(`{"a":{"b":1}`, 0)
	assert.False(t, ok)
}

func TestExtract_RepairIsOptIn(t *testing.T) {
	raw := `{"title": "Push day", "weeks": 4,}`

	_, err := Extract(raw)
	assert.True(t, IsReason(err, ReasonUnparseable))

	ext, err := Extract(raw, WithRepair())
	require.NoError(t, err)
	assert.Equal(t, StrategyRepair, ext.Strategy)
	assert.Equal(t, "Push day", ext.Object["title"])
	assert.Equal(t, json.Number("4"), ext.Object["weeks"])
}

// ==========================
// Failure Tests
// ==========================

func TestExtract_NoOpeningBrace(t *testing.T) {
	_, err := Extract("I'm sorry, I cannot help with that.")
	require.Error(t, err)
	assert.Equal(t, ReasonNoOpeningBrace, ReasonOf(err))
	assert.True(t, errors.Is(err, &Failure{Reason: ReasonNoOpeningBrace}))
}

func TestExtract_NoClosingBrace(t *testing.T) {
	_, err := Extract(`} stray {"questions": [`)
	require.Error(t, err)
	assert.Equal(t, ReasonNoClosingBrace, ReasonOf(err))
}

func TestExtract_UnparseableKeepsDiagnostics(t *testing.T) {
	body := strings.Repeat("x", 1000)
	raw := `{"a": ` + body + `}`

	_, err := Extract(raw)
	require.Error(t, err)

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, ReasonUnparseable, f.Reason)
	assert.Len(t, []rune(f.Head), DefaultDiagnosticChars)
	assert.Len(t, []rune(f.Tail), DefaultDiagnosticChars)
	assert.True(t, strings.HasPrefix(f.Head, `{"a": x`))
	assert.True(t, strings.HasSuffix(f.Tail, `x}`))

	_, err = Extract(raw, WithDiagnosticChars(10))
	require.True(t, errors.As(err, &f))
	assert.Len(t, []rune(f.Head), 10)
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{
		Reason:   ReasonTooFewValidItems,
		Valid:    2,
		Required: 3,
		Dropped:  map[Reason]int{ReasonMissingRequiredField: 5, ReasonArityMismatch: 3},
	}
	assert.Equal(t,
		"llmjson: TOO_FEW_VALID_ITEMS: 2 valid items, need 3 (dropped ARITY_MISMATCH=3 MISSING_REQUIRED_FIELD=5)",
		f.Error())

	assert.Equal(t, Reason(""), ReasonOf(errors.New("plain")))
}
