package compatibility

import (
	"bytes"
	"fmt"
	"sort"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"encoding/json"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

// parseJSONSchema validates content as a well-formed JSON Schema document
// (via santhosh-tekuri/jsonschema) and returns its decoded tree for
// diffing. Structural validation failures are parse errors, never
// violations.
func parseJSONSchema(content []byte) (map[string]any, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(content)); err != nil {
		return nil, registryerr.Wrap(registryerr.ParseError, err, "invalid json schema document")
	}
	if _, err := compiler.Compile("schema.json"); err != nil {
		return nil, registryerr.Wrap(registryerr.ParseError, err, "json schema does not compile")
	}

	var tree map[string]any
	if err := json.Unmarshal(content, &tree); err != nil {
		return nil, registryerr.Wrap(registryerr.ParseError, err, "invalid json schema document")
	}
	return tree, nil
}

// diffJSONSchema implements the backward-compatibility rules of the
// component design §4.1 for JSON Schema: readers of newContent must be
// able to decode data written under oldContent.
func diffJSONSchema(oldContent, newContent []byte) ([]model.Violation, error) {
	oldTree, err := parseJSONSchema(oldContent)
	if err != nil {
		return nil, err
	}
	newTree, err := parseJSONSchema(newContent)
	if err != nil {
		return nil, err
	}

	oldProps := extractProperties(oldTree)
	newProps := extractProperties(newTree)
	oldRequired := requiredSet(oldTree)
	newRequired := requiredSet(newTree)

	var violations []model.Violation

	for name, oldProp := range oldProps {
		path := fmt.Sprintf("properties.%s", name)
		newProp, stillPresent := newProps[name]
		if !stillPresent {
			if !hasDefault(oldProp) {
				violations = append(violations, model.Violation{
					Kind:     model.ViolationFieldRemoved,
					Path:     path,
					Message:  fmt.Sprintf("property %q was removed", name),
					Severity: model.SeverityBreaking,
					OldValue: oldProp,
				})
			}
			continue
		}

		if v, ok := diffPropertyType(path, oldProp, newProp); ok {
			violations = append(violations, v)
		}
		if v, ok := diffConstraintTightening(path, oldProp, newProp); ok {
			violations = append(violations, v)
		}
	}

	for name := range newRequired {
		if oldRequired[name] {
			continue
		}
		path := fmt.Sprintf("properties.%s", name)
		newProp, isNewProperty := newProps[name]
		_, existedBefore := oldProps[name]

		if !existedBefore {
			if !hasDefault(newProp) && isNewProperty {
				violations = append(violations, model.Violation{
					Kind:     model.ViolationFieldAddedRequiredNoDefault,
					Path:     path,
					Message:  fmt.Sprintf("required property %q added without a default", name),
					Severity: model.SeverityBreaking,
					NewValue: newProp,
				})
			}
			continue
		}

		// Property existed but was optional; now required.
		if !hasDefault(newProp) {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationFieldMadeRequired,
				Path:     path,
				Message:  fmt.Sprintf("property %q changed from optional to required", name),
				Severity: model.SeverityBreaking,
			})
		}
	}

	sortViolations(violations)
	return violations, nil
}

func extractProperties(tree map[string]any) map[string]any {
	props, _ := tree["properties"].(map[string]any)
	if props == nil {
		return map[string]any{}
	}
	return props
}

func requiredSet(tree map[string]any) map[string]bool {
	out := map[string]bool{}
	list, _ := tree["required"].([]any)
	for _, v := range list {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out
}

func hasDefault(prop any) bool {
	m, ok := prop.(map[string]any)
	if !ok {
		return false
	}
	_, has := m["default"]
	return has
}

// widening table: type pairs that are allowed to change without being a
// breaking change.
var jsonSchemaWideningAllowed = map[[2]string]bool{
	{"integer", "number"}: true,
}

func diffPropertyType(path string, oldProp, newProp any) (model.Violation, bool) {
	oldM, _ := oldProp.(map[string]any)
	newM, _ := newProp.(map[string]any)
	oldType, _ := oldM["type"].(string)
	newType, _ := newM["type"].(string)
	if oldType == "" || newType == "" || oldType == newType {
		return model.Violation{}, false
	}
	if jsonSchemaWideningAllowed[[2]string{oldType, newType}] {
		return model.Violation{}, false
	}
	if oldType == "array" || oldType == "object" {
		// Structural types changing kind entirely is always breaking.
		// When the kind is unchanged nothing is recursed into: only
		// top-level properties are diffed, and nested properties and
		// array items are not compared.
	}
	return model.Violation{
		Kind:     model.ViolationTypeChangedIncompatible,
		Path:     path + ".type",
		Message:  fmt.Sprintf("type changed from %q to %q", oldType, newType),
		Severity: model.SeverityBreaking,
		OldValue: oldType,
		NewValue: newType,
	}, true
}

func diffConstraintTightening(path string, oldProp, newProp any) (model.Violation, bool) {
	oldM, _ := oldProp.(map[string]any)
	newM, _ := newProp.(map[string]any)

	if tightened, detail := numericTightened(oldM, newM, "minimum", func(a, b float64) bool { return b > a }); tightened {
		return tighteningViolation(path, detail), true
	}
	if tightened, detail := numericTightened(oldM, newM, "maximum", func(a, b float64) bool { return b < a }); tightened {
		return tighteningViolation(path, detail), true
	}
	if tightened, detail := numericTightened(oldM, newM, "minLength", func(a, b float64) bool { return b > a }); tightened {
		return tighteningViolation(path, detail), true
	}
	if tightened, detail := numericTightened(oldM, newM, "maxLength", func(a, b float64) bool { return b < a }); tightened {
		return tighteningViolation(path, detail), true
	}

	oldPattern, _ := oldM["pattern"].(string)
	newPattern, _ := newM["pattern"].(string)
	if oldPattern != "" && newPattern != "" && oldPattern != newPattern {
		return tighteningViolation(path, "pattern"), true
	}

	if oldEnum, ok := oldM["enum"].([]any); ok {
		newEnum, _ := newM["enum"].([]any)
		if !isSuperset(newEnum, oldEnum) {
			return tighteningViolation(path, "enum"), true
		}
	}

	return model.Violation{}, false
}

func numericTightened(oldM, newM map[string]any, key string, worse func(old, new float64) bool) (bool, string) {
	oldV, oldOK := toFloat(oldM[key])
	newV, newOK := toFloat(newM[key])
	if !oldOK || !newOK {
		return false, ""
	}
	if worse(oldV, newV) {
		return true, key
	}
	return false, ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func isSuperset(newEnum, oldEnum []any) bool {
	set := map[string]bool{}
	for _, v := range newEnum {
		set[fmt.Sprint(v)] = true
	}
	for _, v := range oldEnum {
		if !set[fmt.Sprint(v)] {
			return false
		}
	}
	return true
}

func tighteningViolation(path, which string) model.Violation {
	return model.Violation{
		Kind:     model.ViolationConstraintTightened,
		Path:     path + "." + which,
		Message:  fmt.Sprintf("constraint %q was tightened", which),
		Severity: model.SeverityBreaking,
	}
}

func sortViolations(vs []model.Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		return vs[i].Kind < vs[j].Kind
	})
}
