package registryerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf(InvalidInput, "schema %s rejected: %d violations", "orders.created", 3)
	if err.Kind != InvalidInput {
		t.Errorf("Kind = %v, want %v", err.Kind, InvalidInput)
	}
	want := "invalid_input: schema orders.created rejected: 3 violations"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_IncludesPathWhenSet(t *testing.T) {
	err := New(ParseError, "unexpected token").WithPath("$.properties.id")
	want := "parse_error: unexpected token (at $.properties.id)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap_PreservesCauseViaUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(StorageUnavailable, cause, "query schema")

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if got := errors.Unwrap(err); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestKindOf_ReturnsInternalForUnstructuredError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Errorf("KindOf() = %v, want %v", got, Internal)
	}
}

func TestKindOf_ExtractsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("registering schema: %w", Newf(NotFound, "schema missing"))
	if got := KindOf(err); got != NotFound {
		t.Errorf("KindOf() = %v, want %v", got, NotFound)
	}
}

func TestIs_MatchesKind(t *testing.T) {
	err := New(CyclePresent, "lineage graph has a cycle")
	if !Is(err, CyclePresent) {
		t.Error("expected Is to match CyclePresent")
	}
	if Is(err, Internal) {
		t.Error("expected Is not to match a different Kind")
	}
}

func TestWithSuggestion_DoesNotMutateOriginal(t *testing.T) {
	original := New(UnsupportedFormat, "unknown format")
	withHint := original.WithSuggestion("use json-schema, avro, or protobuf")

	if original.Suggestion != "" {
		t.Error("WithSuggestion must not mutate the receiver")
	}
	if withHint.Suggestion == "" {
		t.Error("expected the copy to carry the suggestion")
	}
}
