package llmjson

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Strategy names the recovery step that produced an Extraction.
type Strategy string

const (
	StrategyDirect       Strategy = "direct"
	StrategyTrailingTrim Strategy = "trailing_trim"
	StrategyControlScrub Strategy = "control_scrub"
	StrategyBraceCount   Strategy = "brace_count"
	StrategyRepair       Strategy = "repair"
)

// DefaultDiagnosticChars is how many characters of the attempted span an
// UNPARSEABLE failure keeps from each end.
const DefaultDiagnosticChars = 300

var fenceReplacer = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

// Extraction is a JSON object recovered from a model response.
type Extraction struct {
	Object   map[string]interface{}
	Strategy Strategy
	// Trimmed is the number of bytes dropped from the end of the bracket
	// span by the trailing-trim strategy.
	Trimmed int
}

type options struct {
	repair          bool
	diagnosticChars int
}

// Option tunes Extract and Decode.
type Option func(*options)

// WithRepair enables a final jsonrepair pass over the bracket span before
// giving up with UNPARSEABLE.
func WithRepair() Option {
	return func(o *options) { o.repair = true }
}

// WithDiagnosticChars overrides DefaultDiagnosticChars.
func WithDiagnosticChars(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.diagnosticChars = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{diagnosticChars: DefaultDiagnosticChars}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Extract locates the JSON object embedded in raw and parses it. Strategies
// are tried from cheapest to most general and the first success wins:
// direct parse of the first-'{' to last-'}' span, trimming trailing text
// back to an earlier '}', scrubbing control characters, and brace counting
// from the first '{'. Brace counting only ever yields a '}'-terminated prefix
// of the span, which trailing trim has already tried, so it never recovers a
// reply the earlier strategies missed. Numbers decode as json.Number. On
// failure the returned error is a *Failure.
func Extract(raw string, opts ...Option) (*Extraction, error) {
	o := buildOptions(opts)

	content := strings.TrimSpace(fenceReplacer.Replace(raw))

	start := strings.IndexByte(content, '{')
	if start == -1 {
		return nil, &Failure{
			Reason: ReasonNoOpeningBrace,
			Head:   head(content, o.diagnosticChars),
		}
	}
	end := strings.LastIndexByte(content, '}')
	if end < start {
		return nil, &Failure{
			Reason: ReasonNoClosingBrace,
			Head:   head(content[start:], o.diagnosticChars),
			Tail:   tail(content[start:], o.diagnosticChars),
		}
	}
	span := content[start : end+1]

	if obj, ok := parseObject(span); ok {
		return &Extraction{Object: obj, Strategy: StrategyDirect}, nil
	}

	// The span always ends with '}', which the direct parse already tried.
	for i := len(span) - 2; i >= 0; i-- {
		if span[i] != '}' {
			continue
		}
		if obj, ok := parseObject(span[:i+1]); ok {
			return &Extraction{
				Object:   obj,
				Strategy: StrategyTrailingTrim,
				Trimmed:  len(span) - (i + 1),
			}, nil
		}
	}

	if obj, ok := parseObject(scrubControl(span)); ok {
		return &Extraction{Object: obj, Strategy: StrategyControlScrub}, nil
	}

	if candidate, found := firstBalanced(content, start); found {
		if obj, ok := parseObject(candidate); ok {
			return &Extraction{Object: obj, Strategy: StrategyBraceCount}, nil
		}
	}

	if o.repair {
		if repaired, err := jsonrepair.JSONRepair(span); err == nil {
			if obj, ok := parseObject(repaired); ok {
				return &Extraction{Object: obj, Strategy: StrategyRepair}, nil
			}
		}
	}

	return nil, &Failure{
		Reason: ReasonUnparseable,
		Head:   head(span, o.diagnosticChars),
		Tail:   tail(span, o.diagnosticChars),
	}
}

func parseObject(s string) (map[string]interface{}, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return obj, true
}

func scrubControl(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

// firstBalanced walks content from start counting braces and returns the
// span that brings the count back to zero. Braces inside string literals are
// counted too.
func firstBalanced(content string, start int) (string, bool) {
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
