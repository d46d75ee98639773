package compatibility

import (
	"encoding/json"
	"fmt"

	"github.com/linkedin/goavro/v2"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

// avroField is the subset of an Avro record field's JSON representation
// the diff needs; goavro parses/validates the schema but exposes no
// typed field-tree API, so the fields are re-decoded from the same JSON
// once goavro has confirmed the schema is valid.
type avroField struct {
	Name    string `json:"name"`
	Type    any    `json:"type"`
	Default any    `json:"default"`
	hasDefault bool
}

type avroRecord struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

func (f *avroField) UnmarshalJSON(data []byte) error {
	type alias avroField
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*f = avroField(a)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		_, f.hasDefault = raw["default"]
	}
	return nil
}

// parseAvro validates content with goavro (giving us a real Avro codec,
// catching anything structurally invalid) and then decodes the same JSON
// into an avroRecord for diffing.
func parseAvro(content []byte) (avroRecord, error) {
	if _, err := goavro.NewCodec(string(content)); err != nil {
		return avroRecord{}, registryerr.Wrap(registryerr.ParseError, err, "invalid avro schema")
	}
	var rec avroRecord
	if err := json.Unmarshal(content, &rec); err != nil {
		return avroRecord{}, registryerr.Wrap(registryerr.ParseError, err, "invalid avro schema")
	}
	return rec, nil
}

// avroPromotions is Avro's documented set of promotable type widenings.
var avroPromotions = map[string]map[string]bool{
	"int":    {"long": true, "float": true, "double": true},
	"long":   {"float": true, "double": true},
	"float":  {"double": true},
	"string": {"bytes": true},
	"bytes":  {"string": true},
}

func diffAvro(oldContent, newContent []byte) ([]model.Violation, error) {
	oldRec, err := parseAvro(oldContent)
	if err != nil {
		return nil, err
	}
	newRec, err := parseAvro(newContent)
	if err != nil {
		return nil, err
	}

	oldFields := map[string]avroField{}
	for _, f := range oldRec.Fields {
		oldFields[f.Name] = f
	}
	newFields := map[string]avroField{}
	for _, f := range newRec.Fields {
		newFields[f.Name] = f
	}

	var violations []model.Violation

	for name, oldField := range oldFields {
		path := fmt.Sprintf("fields.%s", name)
		newField, present := newFields[name]
		if !present {
			if !oldField.hasDefault {
				violations = append(violations, model.Violation{
					Kind:     model.ViolationFieldRemoved,
					Path:     path,
					Message:  fmt.Sprintf("field %q removed without a default", name),
					Severity: model.SeverityBreaking,
				})
			}
			continue
		}
		if v, ok := diffAvroType(path, oldField.Type, newField.Type); ok {
			violations = append(violations, v)
		}
		if v, ok := diffAvroEnum(path, oldField.Type, newField.Type); ok {
			violations = append(violations, v)
		}
		if v, ok := diffAvroUnion(path, oldField.Type, newField.Type); ok {
			violations = append(violations, v)
		}
	}

	for name, newField := range newFields {
		if _, existed := oldFields[name]; existed {
			continue
		}
		if !newField.hasDefault {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationFieldAddedRequiredNoDefault,
				Path:     fmt.Sprintf("fields.%s", name),
				Message:  fmt.Sprintf("field %q added without a default", name),
				Severity: model.SeverityBreaking,
			})
		}
	}

	sortViolations(violations)
	return violations, nil
}

func diffAvroType(path string, oldType, newType any) (model.Violation, bool) {
	oldS, oldOK := oldType.(string)
	newS, newOK := newType.(string)
	if !oldOK || !newOK || oldS == newS {
		return model.Violation{}, false
	}
	if avroPromotions[oldS][newS] {
		return model.Violation{}, false
	}
	return model.Violation{
		Kind:     model.ViolationTypeChangedIncompatible,
		Path:     path + ".type",
		Message:  fmt.Sprintf("avro type changed from %q to %q", oldS, newS),
		Severity: model.SeverityBreaking,
		OldValue: oldS,
		NewValue: newS,
	}, true
}

func diffAvroEnum(path string, oldType, newType any) (model.Violation, bool) {
	oldM, oldOK := oldType.(map[string]any)
	newM, newOK := newType.(map[string]any)
	if !oldOK || !newOK || oldM["type"] != "enum" || newM["type"] != "enum" {
		return model.Violation{}, false
	}
	oldSymbols := toStringSet(oldM["symbols"])
	newSymbols := toStringSet(newM["symbols"])
	for sym := range oldSymbols {
		if !newSymbols[sym] {
			return model.Violation{
				Kind:     model.ViolationEnumValueRemoved,
				Path:     path,
				Message:  fmt.Sprintf("enum symbol %q removed", sym),
				Severity: model.SeverityBreaking,
			}, true
		}
	}
	return model.Violation{}, false
}

func diffAvroUnion(path string, oldType, newType any) (model.Violation, bool) {
	oldUnion, oldOK := oldType.([]any)
	newUnion, newOK := newType.([]any)
	if !oldOK || !newOK {
		return model.Violation{}, false
	}
	newSet := map[string]bool{}
	for _, v := range newUnion {
		newSet[fmt.Sprint(v)] = true
	}
	for _, v := range oldUnion {
		if !newSet[fmt.Sprint(v)] {
			return model.Violation{
				Kind:     model.ViolationTypeChangedIncompatible,
				Path:     path,
				Message:  "union variant removed",
				Severity: model.SeverityBreaking,
			}, true
		}
	}
	return model.Violation{}, false
}

func toStringSet(v any) map[string]bool {
	out := map[string]bool{}
	list, _ := v.([]any)
	for _, item := range list {
		if s, ok := item.(string); ok {
			out[s] = true
		}
	}
	return out
}
