// Package compatibility decides whether a proposed schema version may
// succeed prior versions under a configurable compatibility mode, across
// JSON Schema, Avro, and Protobuf.
//
// # Overview
//
// Given a pair of schemas and a mode, the engine produces a Result
// carrying the enumerated list of Violations found and whether the pair
// is compatible overall (compatible iff no violation is breaking).
//
// # Compatibility Modes
//
// NONE: no checking; always compatible.
//
// BACKWARD: readers using the new schema can decode data written under
// the old schema. Safe: optional field addition, enum value addition.
// Breaking: field removal without a default, required-field addition
// without a default, incompatible type changes.
//
// FORWARD: readers using the old schema can decode data written under the
// new schema. Implemented as BACKWARD with arguments swapped.
//
// FULL: both directions; violations are the union.
//
// The _TRANSITIVE variants compare the proposed schema against every
// extant non-deleted version of the subject (newest-first, capped) rather
// than just the immediate predecessor, unioning violations across all
// pairwise checks.
//
// # Usage
//
//	eng := compatibility.NewEngine(compatibility.DefaultConfig())
//	result, err := eng.Check(ctx, newSchema, []*model.Schema{oldSchema}, model.ModeBackward)
package compatibility
