package llmjson

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reason identifies why a model response could not be turned into a result.
type Reason string

const (
	ReasonNoOpeningBrace      Reason = "NO_OPENING_BRACE"
	ReasonNoClosingBrace      Reason = "NO_CLOSING_BRACE"
	ReasonUnparseable         Reason = "UNPARSEABLE"
	ReasonSalvageInsufficient Reason = "SALVAGE_INSUFFICIENT"
	ReasonTooFewValidItems    Reason = "TOO_FEW_VALID_ITEMS"

	// Per-item reasons. They are counted in Failure.Dropped and Result.Dropped
	// and only surface as a hard failure from ValidateObject.
	ReasonMissingRequiredField Reason = "MISSING_REQUIRED_FIELD"
	ReasonArityMismatch        Reason = "ARITY_MISMATCH"
	ReasonWrongType            Reason = "WRONG_TYPE"
)

// Failure is the typed outcome returned (as an error) by Extract, Salvage,
// Validate and Decode.
type Failure struct {
	Reason Reason
	// Head and Tail hold the first and last characters of the text that was
	// being parsed, for diagnostics.
	Head string
	Tail string
	// Valid and Required are set for count based failures.
	Valid    int
	Required int
	// Dropped counts discarded items per per-item reason.
	Dropped map[Reason]int
	// Missing lists absent required keys for single-object validation.
	Missing []string
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("llmjson: ")
	b.WriteString(string(f.Reason))

	switch f.Reason {
	case ReasonTooFewValidItems, ReasonSalvageInsufficient:
		fmt.Fprintf(&b, ": %d valid items, need %d", f.Valid, f.Required)
		if len(f.Dropped) > 0 {
			b.WriteString(" (dropped ")
			b.WriteString(formatDropped(f.Dropped))
			b.WriteString(")")
		}
	case ReasonMissingRequiredField:
		fmt.Fprintf(&b, ": %s", strings.Join(f.Missing, ", "))
	case ReasonUnparseable:
		fmt.Fprintf(&b, ": head=%q tail=%q", f.Head, f.Tail)
	}
	return b.String()
}

// Is reports a match for a *Failure target carrying the same reason, so
// errors.Is(err, &Failure{Reason: ReasonUnparseable}) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Reason == f.Reason
}

// ReasonOf returns the failure reason carried by err, or "" when err is not a *Failure.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}

// IsReason reports whether err is a *Failure with the given reason.
func IsReason(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}

func formatDropped(dropped map[Reason]int) string {
	keys := make([]string, 0, len(dropped))
	for r := range dropped {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, dropped[Reason(k)]))
	}
	return strings.Join(parts, " ")
}

