package features

import (
	"reflect"
	"testing"

	"github.com/siftlabs/sift/internal/types"
)

func TestComputeDeltaStructured(t *testing.T) {
	expected := types.MapValue(map[string]string{
		"price":    "42",
		"currency": "USD",
		"tax":      "5",
	})
	actual := types.MapValue(map[string]string{
		"price":    "40",
		"currency": "USD",
		"discount": "2",
	})

	d := ComputeDelta(expected, actual)
	if !d.Structured {
		t.Fatal("map vs map should produce a structured delta")
	}
	if !reflect.DeepEqual(d.MissingKeys, []string{"tax"}) {
		t.Errorf("missing keys = %v, want [tax]", d.MissingKeys)
	}
	if !reflect.DeepEqual(d.UnexpectedKeys, []string{"discount"}) {
		t.Errorf("unexpected keys = %v, want [discount]", d.UnexpectedKeys)
	}
	if got := d.ChangedKeys["price"]; got != (ValuePair{Expected: "42", Actual: "40"}) {
		t.Errorf("changed price = %+v", got)
	}
	if _, ok := d.ChangedKeys["currency"]; ok {
		t.Error("equal currency value should be elided")
	}
}

func TestComputeDeltaText(t *testing.T) {
	d := ComputeDelta(types.TextValue("expected answer here"), types.TextValue("actual answer here"))
	if d.Structured {
		t.Fatal("text vs text should not be structured")
	}
	if !reflect.DeepEqual(d.OmittedTokens, []string{"expected"}) {
		t.Errorf("omitted = %v, want [expected]", d.OmittedTokens)
	}
	if !reflect.DeepEqual(d.AddedTokens, []string{"actual"}) {
		t.Errorf("added = %v, want [actual]", d.AddedTokens)
	}
}

func TestComputeDeltaNullExpected(t *testing.T) {
	// No expected output means nothing to compare; the error message
	// carries the signal instead.
	d := ComputeDelta(types.NullValue(), types.TextValue("whatever"))
	if !d.IsEmpty() {
		t.Errorf("delta with null expected should be empty, got %+v", d)
	}
}

func TestDeltaSignature(t *testing.T) {
	d := Delta{
		Structured:     true,
		MissingKeys:    []string{"tax"},
		UnexpectedKeys: []string{"discount"},
		ChangedKeys:    map[string]ValuePair{"price": {Expected: "42", Actual: "40"}},
	}
	want := []string{"changed:price", "missing:tax", "unexpected:discount"}
	if got := d.Signature(); !reflect.DeepEqual(got, want) {
		t.Errorf("Signature() = %v, want %v", got, want)
	}

	// Same shape, different values: identical signatures.
	d2 := Delta{
		Structured:     true,
		MissingKeys:    []string{"tax"},
		UnexpectedKeys: []string{"discount"},
		ChangedKeys:    map[string]ValuePair{"price": {Expected: "100", Actual: "1"}},
	}
	if !reflect.DeepEqual(d.Signature(), d2.Signature()) {
		t.Error("signatures should ignore the specific values")
	}
}
