package llmjson

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind selects the check and coercion applied to a field.
type Kind int

const (
	// KindString accepts any scalar and stores it as a string.
	KindString Kind = iota
	// KindInt coerces numbers and numeric strings to int; anything else
	// becomes Default (zero when unset).
	KindInt
	// KindChoice expects an integer within [Min, Max]; anything else becomes
	// Default. The item is kept either way.
	KindChoice
	// KindText is free text; values shorter than MinLength runes are
	// replaced by Fallback.
	KindText
	// KindStringArray is an array of scalars stored as []string. A non-zero
	// Length requires that exact arity.
	KindStringArray
	// KindObjectArray is an array of objects checked against Item. Invalid
	// entries are dropped from the array.
	KindObjectArray
)

// Field describes one key of an item.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Length is the exact arity required of a KindStringArray.
	Length int
	// Min and Max bound a KindChoice.
	Min, Max int
	// Default replaces absent or unusable values where the kind allows it.
	Default interface{}
	// MinLength and Fallback apply to KindText.
	MinLength int
	Fallback  func(item map[string]interface{}) string
	// Item describes the entries of a KindObjectArray.
	Item []Field
}

// Schema is what a caller expects back from the model for one call site.
type Schema struct {
	// Key is the top-level key holding the item array, e.g. "questions".
	Key    string
	Fields []Field
	// MaxItems is the requested count; survivors beyond it are cut off.
	// Zero keeps everything.
	MaxItems int
	// MinItems is the fewest survivors that still make a usable result.
	MinItems int
	// Salvage, when set, lets Decode fall back to pattern matching after
	// Extract fails.
	Salvage *ItemPattern
}

// Result holds the items that passed validation, in input order.
type Result struct {
	Key   string
	Items []map[string]interface{}
	// Considered is the number of candidate items found under Key.
	Considered int
	// Dropped counts discarded items per reason.
	Dropped map[Reason]int
	// Salvaged is set when the items came from the salvage path.
	Salvaged bool
	// Strategy is the extraction strategy, when the result came from Decode.
	Strategy Strategy
}

// Object returns the result in the shape Validate accepts, {Key: [items]}.
func (r *Result) Object() map[string]interface{} {
	items := make([]interface{}, len(r.Items))
	for i, it := range r.Items {
		items[i] = it
	}
	return map[string]interface{}{r.Key: items}
}

// Validate filters and coerces the items found under schema.Key. Items
// missing a required field or with a wrong-arity array are dropped; every
// other deviation is repaired in place. Survivors are truncated to
// schema.MaxItems. Fewer than schema.MinItems survivors is a
// TOO_FEW_VALID_ITEMS failure.
func Validate(parsed map[string]interface{}, schema Schema) (*Result, error) {
	res := &Result{Key: schema.Key, Dropped: map[Reason]int{}}

	for _, candidate := range asList(parsed[schema.Key]) {
		res.Considered++

		obj, ok := asObject(candidate)
		if !ok {
			res.Dropped[ReasonWrongType]++
			continue
		}
		item, reason := normalizeItem(obj, schema.Fields)
		if reason != "" {
			res.Dropped[reason]++
			continue
		}
		res.Items = append(res.Items, item)
	}

	if len(res.Items) < schema.MinItems {
		return nil, &Failure{
			Reason:   ReasonTooFewValidItems,
			Valid:    len(res.Items),
			Required: schema.MinItems,
			Dropped:  res.Dropped,
		}
	}

	if schema.MaxItems > 0 && len(res.Items) > schema.MaxItems {
		res.Items = res.Items[:schema.MaxItems]
	}
	return res, nil
}

// ValidateObject applies the field rules to a single root object. All
// absent required keys are reported together.
func ValidateObject(parsed map[string]interface{}, fields []Field) (map[string]interface{}, error) {
	var missing []string
	for _, f := range fields {
		if _, ok := parsed[f.Name]; f.Required && !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &Failure{Reason: ReasonMissingRequiredField, Missing: missing}
	}

	item, reason := normalizeItem(parsed, fields)
	if reason != "" {
		return nil, &Failure{Reason: reason}
	}
	return item, nil
}

func normalizeItem(obj map[string]interface{}, fields []Field) (map[string]interface{}, Reason) {
	out := make(map[string]interface{}, len(fields))

	for _, f := range fields {
		v, present := obj[f.Name]
		if !present && f.Required {
			return nil, ReasonMissingRequiredField
		}
		// a null value takes the same default path as an absent key
		if v == nil {
			present = false
		}

		switch f.Kind {
		case KindString:
			if !present {
				switch {
				case f.Default != nil:
					out[f.Name] = f.Default
				case f.Required:
					return nil, ReasonWrongType
				}
				continue
			}
			s, ok := scalarString(v)
			if !ok {
				return nil, ReasonWrongType
			}
			out[f.Name] = s

		case KindInt:
			n, ok := 0, false
			if present {
				n, ok = coerceInt(v)
			}
			if !ok {
				n = defaultInt(f.Default)
			}
			out[f.Name] = n

		case KindChoice:
			n, ok := 0, false
			if present {
				n, ok = exactInt(v)
			}
			if !ok || n < f.Min || n > f.Max {
				n = defaultInt(f.Default)
			}
			out[f.Name] = n

		case KindText:
			s, ok := "", false
			if present {
				s, ok = scalarString(v)
				if !ok {
					return nil, ReasonWrongType
				}
			}
			if !ok && f.Fallback == nil && f.Default == nil {
				continue
			}
			if !ok || utf8.RuneCountInString(strings.TrimSpace(s)) < f.MinLength {
				switch {
				case f.Fallback != nil:
					s = f.Fallback(out)
				case f.Default != nil:
					s, _ = scalarString(f.Default)
				}
			}
			out[f.Name] = s

		case KindStringArray:
			if !present {
				switch {
				case f.Default != nil:
					out[f.Name] = f.Default
				case f.Required:
					return nil, ReasonWrongType
				}
				continue
			}
			list, ok := stringList(v)
			if !ok {
				if f.Default == nil {
					return nil, ReasonWrongType
				}
				out[f.Name] = f.Default
				continue
			}
			if f.Length > 0 && len(list) != f.Length {
				return nil, ReasonArityMismatch
			}
			out[f.Name] = list

		case KindObjectArray:
			if !present {
				switch {
				case f.Default != nil:
					out[f.Name] = f.Default
				case f.Required:
					return nil, ReasonWrongType
				}
				continue
			}
			raw, ok := listValue(v)
			if !ok {
				return nil, ReasonWrongType
			}
			nested := make([]map[string]interface{}, 0, len(raw))
			for _, entry := range raw {
				eo, ok := asObject(entry)
				if !ok {
					continue
				}
				if ni, reason := normalizeItem(eo, f.Item); reason == "" {
					nested = append(nested, ni)
				}
			}
			out[f.Name] = nested
		}
	}

	return out, ""
}

func asList(v interface{}) []interface{} {
	list, _ := listValue(v)
	return list
}

func listValue(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func stringList(v interface{}) ([]string, bool) {
	raw, ok := listValue(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := scalarString(e)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// exactInt accepts only integral JSON numbers. A json.Number written with a
// fraction or exponent, such as 1.0, is not an integer.
func exactInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return intInRange(t)
	case float64:
		if t != math.Trunc(t) || !floatInRange(t) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return intInRange(n)
	}
	return 0, false
}

// coerceInt truncates numbers and parses numeric strings.
func coerceInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		if !floatInRange(t) {
			return 0, false
		}
		return int(t), true
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return intInRange(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && floatInRange(f) {
			return int(f), true
		}
		return 0, false
	case json.Number:
		return coerceInt(t.String())
	}
	return exactInt(v)
}

// maxExactFloat bounds the floats converted to int: every integer up to
// 2^53 is exact in a float64 and fits an int on every platform we build for.
const maxExactFloat = 1 << 53

func floatInRange(f float64) bool {
	return !math.IsNaN(f) && f >= -maxExactFloat && f <= maxExactFloat
}

func intInRange(n int64) (int, bool) {
	if n < math.MinInt || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func defaultInt(v interface{}) int {
	if n, ok := exactInt(v); ok {
		return n
	}
	return 0
}
