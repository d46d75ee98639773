package compatibility

import "testing"

func TestDiffJSONSchema_ConstraintTightened(t *testing.T) {
	old := []byte(`{"type":"object","properties":{"x":{"type":"integer","minimum":0}}}`)
	next := []byte(`{"type":"object","properties":{"x":{"type":"integer","minimum":5}}}`)

	violations, err := diffJSONSchema(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(violations) != 1 || violations[0].Kind != "constraint_tightened" {
		t.Fatalf("expected one constraint_tightened violation, got %+v", violations)
	}
}

func TestDiffJSONSchema_WideningIntegerToNumberAllowed(t *testing.T) {
	old := []byte(`{"type":"object","properties":{"x":{"type":"integer"}}}`)
	next := []byte(`{"type":"object","properties":{"x":{"type":"number"}}}`)

	violations, err := diffJSONSchema(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected integer->number widening to be allowed, got %+v", violations)
	}
}

func TestDiffJSONSchema_EnumShrinkIsBreaking(t *testing.T) {
	old := []byte(`{"type":"object","properties":{"x":{"type":"string","enum":["a","b"]}}}`)
	next := []byte(`{"type":"object","properties":{"x":{"type":"string","enum":["a"]}}}`)

	violations, err := diffJSONSchema(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(violations) != 1 || violations[0].Kind != "constraint_tightened" {
		t.Fatalf("expected constraint_tightened for enum shrink, got %+v", violations)
	}
}

func TestDiffJSONSchema_ParseErrorOnMalformedSchema(t *testing.T) {
	old := []byte(`{"type":"object","properties":{"x":{"type":"string"}}}`)
	next := []byte(`not json`)

	if _, err := diffJSONSchema(old, next); err == nil {
		t.Fatal("expected parse error for malformed schema")
	}
}
