// Package llmjson turns free-form text returned by a language model into
// structured items.
//
// Extract finds and parses the JSON object embedded in the text, Validate
// filters and coerces its items against a Schema, and Salvage recovers items
// by pattern matching when no JSON can be parsed at all. Decode chains the
// three. Every failure is a *Failure carrying a Reason.
//
// All functions are pure and safe for concurrent use.
package llmjson
