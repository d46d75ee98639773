package compatibility

import "testing"

func TestDiffAvro_FieldRemovedWithoutDefault(t *testing.T) {
	old := []byte(`{"type":"record","name":"User","fields":[{"name":"id","type":"string"},{"name":"email","type":"string"}]}`)
	next := []byte(`{"type":"record","name":"User","fields":[{"name":"id","type":"string"}]}`)

	violations, err := diffAvro(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(violations) != 1 || violations[0].Kind != "field_removed" {
		t.Fatalf("expected field_removed, got %+v", violations)
	}
}

func TestDiffAvro_PromotableTypeChangeAllowed(t *testing.T) {
	old := []byte(`{"type":"record","name":"User","fields":[{"name":"count","type":"int"}]}`)
	next := []byte(`{"type":"record","name":"User","fields":[{"name":"count","type":"long"}]}`)

	violations, err := diffAvro(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected int->long promotion to be allowed, got %+v", violations)
	}
}

func TestDiffAvro_FieldAddedWithDefaultIsSafe(t *testing.T) {
	old := []byte(`{"type":"record","name":"User","fields":[{"name":"id","type":"string"}]}`)
	next := []byte(`{"type":"record","name":"User","fields":[{"name":"id","type":"string"},{"name":"nickname","type":"string","default":""}]}`)

	violations, err := diffAvro(old, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations for defaulted field addition, got %+v", violations)
	}
}
