package compatibility

import (
	"context"
	"fmt"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/schemaforge/registry-core/pkg/model"
	"github.com/schemaforge/registry-core/pkg/registryerr"
)

const protoVirtualFilename = "schema.proto"

// parseProtobuf compiles content with protocompile (a real protobuf
// source parser, not a hand-rolled scanner) and returns its descriptor.
func parseProtobuf(content []byte) (*descriptorpb.FileDescriptorProto, error) {
	compiler := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{
				protoVirtualFilename: string(content),
			}),
		},
	}

	result, err := compiler.Compile(context.Background(), protoVirtualFilename)
	if err != nil {
		return nil, registryerr.Wrap(registryerr.ParseError, err, "invalid protobuf schema")
	}

	var fileDesc protoreflect.FileDescriptor
	for _, f := range result {
		fileDesc = f
		break
	}
	if fileDesc == nil {
		return nil, registryerr.New(registryerr.ParseError, "protobuf schema compiled to no files")
	}

	return protodesc.ToFileDescriptorProto(fileDesc), nil
}

// protoWireCompatible mirrors the protobuf wire-format compatible type
// pairs: fields may change type within these groups without breaking
// wire decoding.
var protoWireCompatible = map[descriptorpb.FieldDescriptorProto_Type][]descriptorpb.FieldDescriptorProto_Type{
	descriptorpb.FieldDescriptorProto_TYPE_INT32: {
		descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	},
	descriptorpb.FieldDescriptorProto_TYPE_INT64: {
		descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	},
	descriptorpb.FieldDescriptorProto_TYPE_UINT32: {
		descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	},
	descriptorpb.FieldDescriptorProto_TYPE_UINT64: {
		descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	},
	descriptorpb.FieldDescriptorProto_TYPE_BOOL: {
		descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	},
	descriptorpb.FieldDescriptorProto_TYPE_SINT32: {descriptorpb.FieldDescriptorProto_TYPE_SINT64},
	descriptorpb.FieldDescriptorProto_TYPE_SINT64: {descriptorpb.FieldDescriptorProto_TYPE_SINT32},
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32: {
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	},
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64: {
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	},
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: {
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	},
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: {
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	},
	descriptorpb.FieldDescriptorProto_TYPE_STRING: {descriptorpb.FieldDescriptorProto_TYPE_BYTES},
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:  {descriptorpb.FieldDescriptorProto_TYPE_STRING},
}

func isProtoTypeCompatible(old, new descriptorpb.FieldDescriptorProto_Type) bool {
	if old == new {
		return true
	}
	for _, t := range protoWireCompatible[old] {
		if t == new {
			return true
		}
	}
	return false
}

func diffProtobuf(oldContent, newContent []byte) ([]model.Violation, error) {
	oldDesc, err := parseProtobuf(oldContent)
	if err != nil {
		return nil, err
	}
	newDesc, err := parseProtobuf(newContent)
	if err != nil {
		return nil, err
	}

	var violations []model.Violation
	for _, oldMsg := range oldDesc.GetMessageType() {
		newMsg := findMessage(newDesc, oldMsg.GetName())
		if newMsg == nil {
			continue // message removal at the file level is out of scope for field-level diffing
		}
		violations = append(violations, diffProtoMessage(oldMsg, newMsg)...)
	}
	for _, oldEnum := range oldDesc.GetEnumType() {
		newEnum := findEnum(newDesc, oldEnum.GetName())
		if newEnum == nil {
			continue
		}
		violations = append(violations, diffProtoEnum(oldEnum, newEnum)...)
	}

	sortViolations(violations)
	return violations, nil
}

func findMessage(file *descriptorpb.FileDescriptorProto, name string) *descriptorpb.DescriptorProto {
	for _, m := range file.GetMessageType() {
		if m.GetName() == name {
			return m
		}
	}
	return nil
}

func findEnum(file *descriptorpb.FileDescriptorProto, name string) *descriptorpb.EnumDescriptorProto {
	for _, e := range file.GetEnumType() {
		if e.GetName() == name {
			return e
		}
	}
	return nil
}

func reservedNumbers(ranges []*descriptorpb.DescriptorProto_ReservedRange) map[int32]bool {
	out := map[int32]bool{}
	for _, r := range ranges {
		for n := r.GetStart(); n < r.GetEnd(); n++ {
			out[n] = true
		}
	}
	return out
}

func diffProtoMessage(oldMsg, newMsg *descriptorpb.DescriptorProto) []model.Violation {
	var violations []model.Violation
	path := fmt.Sprintf("message.%s", oldMsg.GetName())

	oldFields := map[int32]*descriptorpb.FieldDescriptorProto{}
	oldByName := map[string]*descriptorpb.FieldDescriptorProto{}
	for _, f := range oldMsg.GetField() {
		oldFields[f.GetNumber()] = f
		oldByName[f.GetName()] = f
	}
	newFields := map[int32]*descriptorpb.FieldDescriptorProto{}
	newByName := map[string]*descriptorpb.FieldDescriptorProto{}
	for _, f := range newMsg.GetField() {
		newFields[f.GetNumber()] = f
		newByName[f.GetName()] = f
	}
	newReserved := reservedNumbers(newMsg.GetReservedRange())

	for num, oldField := range oldFields {
		fieldPath := fmt.Sprintf("%s.fields.%s", path, oldField.GetName())
		newField, stillPresent := newFields[num]
		if !stillPresent {
			if !newReserved[num] {
				violations = append(violations, model.Violation{
					Kind:     model.ViolationFieldRemoved,
					Path:     fieldPath,
					Message:  fmt.Sprintf("field %d (%s) removed without reserving the number", num, oldField.GetName()),
					Severity: model.SeverityBreaking,
				})
			}
			continue
		}
		if newField.GetName() != oldField.GetName() {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationTypeChangedIncompatible,
				Path:     fieldPath,
				Message:  fmt.Sprintf("field number %d renumbered/renamed from %q to %q", num, oldField.GetName(), newField.GetName()),
				Severity: model.SeverityBreaking,
			})
		}
		if !isProtoTypeCompatible(oldField.GetType(), newField.GetType()) {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationTypeChangedIncompatible,
				Path:     fieldPath + ".type",
				Message:  fmt.Sprintf("field type changed from %s to %s (not wire-compatible)", oldField.GetType(), newField.GetType()),
				Severity: model.SeverityBreaking,
				OldValue: oldField.GetType().String(),
				NewValue: newField.GetType().String(),
			})
		}
	}

	// Renumbering shows up as a field present by name in both but under a
	// different number. The number-keyed loop above flags the freed old
	// number (as a removal unless reserved) and same-number renames; this
	// loop flags the renumbering itself, whether or not numbers are reserved.
	for name, oldField := range oldByName {
		newField, ok := newByName[name]
		if !ok {
			continue
		}
		if oldField.GetNumber() != newField.GetNumber() {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationTypeChangedIncompatible,
				Path:     fmt.Sprintf("%s.fields.%s", path, name),
				Message:  fmt.Sprintf("field %q renumbered from %d to %d", name, oldField.GetNumber(), newField.GetNumber()),
				Severity: model.SeverityBreaking,
			})
		}
	}

	return violations
}

func diffProtoEnum(oldEnum, newEnum *descriptorpb.EnumDescriptorProto) []model.Violation {
	var violations []model.Violation
	path := fmt.Sprintf("enum.%s", oldEnum.GetName())

	newValues := map[int32]bool{}
	for _, v := range newEnum.GetValue() {
		newValues[v.GetNumber()] = true
	}
	newReserved := reservedNumbers(newEnum.GetReservedRange())

	for _, v := range oldEnum.GetValue() {
		if !newValues[v.GetNumber()] && !newReserved[v.GetNumber()] {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationEnumValueRemoved,
				Path:     fmt.Sprintf("%s.%s", path, v.GetName()),
				Message:  fmt.Sprintf("enum value %q (%d) removed without reserving the number", v.GetName(), v.GetNumber()),
				Severity: model.SeverityBreaking,
			})
		}
	}
	return violations
}
