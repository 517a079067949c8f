// Package types defines the core data model shared across the analysis
// pipeline: test records, failure patterns, recommendation drafts, and the
// consolidated priority plan.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind tags the closed variant used for record inputs and outputs.
// Test records arrive from heterogeneous sources (JSON, CSV, JUnit) where
// input/expected/actual may be free text, a key-value mapping, or absent.
type ValueKind int

const (
	// ValueNull marks an absent field (e.g., no expected output recorded).
	ValueNull ValueKind = iota

	// ValueText is free text.
	ValueText

	// ValueMap is a structured key-value mapping. Values are stored as
	// strings; nested structures are flattened to their JSON encoding.
	ValueMap
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueText:
		return "text"
	case ValueMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a closed tagged variant: exactly one of Text or Map is
// meaningful, selected by Kind. Components branch on Kind rather than
// type-switching over interface{}.
type Value struct {
	Kind ValueKind
	Text string
	Map  map[string]string
}

// TextValue wraps free text as a Value.
func TextValue(s string) Value {
	return Value{Kind: ValueText, Text: s}
}

// MapValue wraps a key-value mapping as a Value.
func MapValue(m map[string]string) Value {
	return Value{Kind: ValueMap, Map: m}
}

// NullValue is the absent Value.
func NullValue() Value {
	return Value{Kind: ValueNull}
}

// IsEmpty reports whether the value carries no usable content.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case ValueText:
		return v.Text == ""
	case ValueMap:
		return len(v.Map) == 0
	default:
		return true
	}
}

// Flatten renders the value as deterministic text for similarity analysis.
// Map entries are emitted in sorted key order so that two equal maps always
// produce byte-identical text.
func (v Value) Flatten() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := ""
		for i, k := range keys {
			if i > 0 {
				out += " "
			}
			out += k + ":" + v.Map[k]
		}
		return out
	default:
		return ""
	}
}

// UnmarshalJSON accepts a string, an object, null, or any other JSON value.
// Objects become ValueMap with scalar values stringified and nested values
// kept as their compact JSON encoding. Non-object non-string values (numbers,
// arrays, booleans) degrade to ValueText of their JSON encoding.
func (v *Value) UnmarshalJSON(data []byte) error {
	// null decodes successfully into both branches below (as a no-op), so
	// it has to be recognized first.
	if string(data) == "null" {
		*v = NullValue()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = TextValue(s)
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err == nil {
		out := make(map[string]string, len(m))
		for k, raw := range m {
			var sv string
			if err := json.Unmarshal(raw, &sv); err == nil {
				out[k] = sv
			} else {
				out[k] = string(raw)
			}
		}
		*v = MapValue(out)
		return nil
	}

	*v = TextValue(string(data))
	return nil
}

// MarshalJSON renders ValueText as a string, ValueMap as an object, and
// ValueNull as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueText:
		return json.Marshal(v.Text)
	case ValueMap:
		return json.Marshal(v.Map)
	default:
		return []byte("null"), nil
	}
}

// TestRecord is one evaluated test case. Records are immutable once parsed;
// the pipeline owns them for the duration of a single analysis run.
type TestRecord struct {
	// ID uniquely identifies the record within a run.
	ID string `json:"test_id"`

	// Name is an optional human-readable test name.
	Name string `json:"test_name,omitempty"`

	// Input is the request sent to the system under test.
	Input Value `json:"input"`

	// Expected is the expected output, when the suite recorded one.
	Expected Value `json:"expected_output,omitempty"`

	// Actual is the response the system actually produced.
	Actual Value `json:"actual_output"`

	// Passed is the pass/fail verdict. Only failing records enter
	// clustering.
	Passed bool `json:"passed"`

	// ErrorMessage is the failure reason attached by the test harness,
	// if any. Absent messages are backfilled by the AI analyst before
	// feature extraction.
	ErrorMessage string `json:"error_message,omitempty"`

	// Context carries additional free-text context (category, tags,
	// harness metadata) folded down to one string.
	Context string `json:"context,omitempty"`
}

// Validate checks the fields required for a record to enter the pipeline.
// Invalid records are counted and excluded, never fatal to the run.
func (r *TestRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("test record is missing a test_id")
	}
	if r.Input.Kind == ValueNull && r.Actual.Kind == ValueNull {
		return fmt.Errorf("test record %s has neither input nor actual output", r.ID)
	}
	return nil
}
