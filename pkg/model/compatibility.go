package model

// CompatibilityMode is a closed enumeration of the admission policies the
// compatibility engine evaluates a proposed schema against.
type CompatibilityMode string

const (
	ModeNone                CompatibilityMode = "none"
	ModeBackward            CompatibilityMode = "backward"
	ModeForward             CompatibilityMode = "forward"
	ModeFull                CompatibilityMode = "full"
	ModeBackwardTransitive  CompatibilityMode = "backward_transitive"
	ModeForwardTransitive   CompatibilityMode = "forward_transitive"
	ModeFullTransitive      CompatibilityMode = "full_transitive"
)

// IsTransitive reports whether m compares against every extant version of
// a subject rather than just the immediately prior one.
func (m CompatibilityMode) IsTransitive() bool {
	switch m {
	case ModeBackwardTransitive, ModeForwardTransitive, ModeFullTransitive:
		return true
	default:
		return false
	}
}

// Base strips the _transitive suffix, returning the non-transitive mode
// used for each pairwise comparison within a transitive check.
func (m CompatibilityMode) Base() CompatibilityMode {
	switch m {
	case ModeBackwardTransitive:
		return ModeBackward
	case ModeForwardTransitive:
		return ModeForward
	case ModeFullTransitive:
		return ModeFull
	default:
		return m
	}
}

// Severity is the closed set of violation severities.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// ViolationKind is the closed taxonomy of compatibility differences.
type ViolationKind string

const (
	ViolationFieldRemoved                 ViolationKind = "field_removed"
	ViolationFieldAddedRequiredNoDefault  ViolationKind = "field_added_required_no_default"
	ViolationFieldMadeRequired            ViolationKind = "field_made_required"
	ViolationTypeChangedIncompatible      ViolationKind = "type_changed_incompatible"
	ViolationConstraintTightened         ViolationKind = "constraint_tightened"
	ViolationEnumValueRemoved             ViolationKind = "enum_value_removed"
	ViolationFormatChanged                ViolationKind = "format_changed"
	ViolationMajorVersionRegression       ViolationKind = "major_version_regression"
	ViolationCustomRule                   ViolationKind = "custom_rule_violation"
)

// Violation is a single enumerated difference between two schemas.
type Violation struct {
	Kind     ViolationKind
	Path     string
	Message  string
	Severity Severity
	OldValue any
	NewValue any
}

// IsBreaking reports whether v would make a compatibility result
// incompatible.
func (v Violation) IsBreaking() bool { return v.Severity == SeverityBreaking }

// Result is the outcome of checking a proposed schema against one or more
// prior versions under a given mode.
type Result struct {
	IsCompatible    bool
	Mode            CompatibilityMode
	Violations      []Violation
	CheckedVersions []Version
	DurationMS      float64
}

// NewResult derives IsCompatible from the violation list, enforcing the
// invariant that a result is compatible iff no violation is breaking.
func NewResult(mode CompatibilityMode, violations []Violation, checked []Version, durationMS float64) Result {
	compatible := true
	for _, v := range violations {
		if v.IsBreaking() {
			compatible = false
			break
		}
	}
	if violations == nil {
		violations = []Violation{}
	}
	return Result{
		IsCompatible:    compatible,
		Mode:            mode,
		Violations:      violations,
		CheckedVersions: checked,
		DurationMS:      durationMS,
	}
}

// CustomRule is a pluggable check appended after the built-in per-format
// rules. Rules never suppress built-in violations, only add to them.
type CustomRule struct {
	Name     string
	Severity Severity
	Apply    func(oldContent, newContent []byte, format Format) []Violation
}
