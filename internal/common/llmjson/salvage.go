package llmjson

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	stringValue = `"((?:[^"\\]|\\.)*)"`
	intValue    = `(-?\d+)`
	arrayValue  = `\[(.*?)\]`
)

var quotedString = regexp.MustCompile(stringValue)

// ItemPattern is a compiled motif of "field": value pairs, in field order,
// used to recover items from text that is not valid JSON. It is immutable
// once built and safe for concurrent use.
type ItemPattern struct {
	Key    string
	Fields []Field
	// MinItems is the fewest motifs Salvage must find. Defaults to 1.
	MinItems int

	re *regexp.Regexp
}

// NewItemPattern builds the motif for items stored under key. Fields of
// KindObjectArray cannot be salvaged.
func NewItemPattern(key string, fields ...Field) (*ItemPattern, error) {
	if key == "" {
		return nil, fmt.Errorf("llmjson: item pattern needs a key")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("llmjson: item pattern for %q has no fields", key)
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		var value string
		switch f.Kind {
		case KindString, KindText:
			value = stringValue
		case KindInt, KindChoice:
			value = intValue
		case KindStringArray:
			value = arrayValue
		default:
			return nil, fmt.Errorf("llmjson: field %q of kind %d cannot be salvaged", f.Name, f.Kind)
		}
		parts = append(parts, `"`+regexp.QuoteMeta(f.Name)+`"\s*:\s*`+value)
	}

	re, err := regexp.Compile(`(?s)` + strings.Join(parts, `.*?`))
	if err != nil {
		return nil, fmt.Errorf("llmjson: compile item pattern for %q: %w", key, err)
	}

	return &ItemPattern{Key: key, Fields: fields, MinItems: 1, re: re}, nil
}

// MustItemPattern is like NewItemPattern but panics on error. It is meant
// for package level schema declarations.
func MustItemPattern(key string, fields ...Field) *ItemPattern {
	p, err := NewItemPattern(key, fields...)
	if err != nil {
		panic(err)
	}
	return p
}

// WithMinItems returns a copy of p requiring at least n motifs.
func (p *ItemPattern) WithMinItems(n int) *ItemPattern {
	cp := *p
	cp.MinItems = n
	return &cp
}

// Salvage scans raw for repeated item motifs and rebuilds {Key: [items]}.
// The output still has to go through Validate. It fails with
// SALVAGE_INSUFFICIENT when the key is not mentioned at all or fewer than
// p.MinItems motifs are found.
func Salvage(raw string, p *ItemPattern) (map[string]interface{}, error) {
	if !strings.Contains(raw, `"`+p.Key+`"`) {
		return nil, &Failure{Reason: ReasonSalvageInsufficient, Required: p.MinItems, Head: head(raw, DefaultDiagnosticChars)}
	}

	var items []interface{}
	for _, m := range p.re.FindAllStringSubmatch(raw, -1) {
		item := make(map[string]interface{}, len(p.Fields))
		for i, f := range p.Fields {
			group := m[i+1]
			switch f.Kind {
			case KindString, KindText:
				item[f.Name] = unquote(group)
			case KindInt, KindChoice:
				n, err := strconv.Atoi(group)
				if err != nil {
					continue
				}
				item[f.Name] = n
			case KindStringArray:
				var list []interface{}
				for _, s := range quotedString.FindAllStringSubmatch(group, -1) {
					list = append(list, unquote(s[1]))
				}
				item[f.Name] = list
			}
		}
		items = append(items, item)
	}

	if len(items) < p.MinItems {
		return nil, &Failure{Reason: ReasonSalvageInsufficient, Valid: len(items), Required: p.MinItems}
	}
	return map[string]interface{}{p.Key: items}, nil
}

func unquote(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}
