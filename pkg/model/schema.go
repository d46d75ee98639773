// Package model holds the data types shared across the compatibility,
// lineage, analytics, and storage engines: schema identifiers, versions,
// and the enumerations each engine tags its results with.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// Format identifies the schema language a Schema's content is written in.
type Format string

const (
	FormatJSONSchema Format = "json-schema"
	FormatAvro       Format = "avro"
	FormatProtobuf   Format = "protobuf"
)

// State is the lifecycle state of a Schema.
type State string

const (
	StateActive     State = "active"
	StateDeprecated State = "deprecated"
	StateDeleted    State = "deleted"
)

// Version is a SemVer triple with optional prerelease/build metadata. It
// wraps Masterminds/semver so comparisons follow the SemVer precedence
// rules rather than a hand-rolled ordering.
type Version struct {
	Major, Minor, Patch uint64
	Prerelease          string
	Build                string
}

// String renders the version in canonical SemVer form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// ParseVersion parses a SemVer string into a Version.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("parse version %q: %w", s, err)
	}
	return Version{
		Major:      sv.Major(),
		Minor:      sv.Minor(),
		Patch:      sv.Patch(),
		Prerelease: sv.Prerelease(),
		Build:      sv.Metadata(),
	}, nil
}

// Compare orders two Versions per SemVer precedence (build metadata is
// ignored per the spec, matching semver.Version.Compare).
func (v Version) Compare(other Version) int {
	a, _ := semver.NewVersion(v.String())
	b, _ := semver.NewVersion(other.String())
	return a.Compare(b)
}

// Triple reports the (major, minor, patch) identity used for uniqueness.
func (v Version) Triple() (uint64, uint64, uint64) {
	return v.Major, v.Minor, v.Patch
}

// Metadata carries the mutable, non-content attributes of a Schema.
type Metadata struct {
	Owner             string
	Tags              []string
	Description       string
	CompatibilityMode CompatibilityMode
	CreatedAt         time.Time
	CreatedBy         string
	DeletedAt         *time.Time
}

// Schema is one immutable-content version of a subject.
type Schema struct {
	ID          uuid.UUID
	Subject     string
	Version     Version
	Format      Format
	Content     []byte
	ContentHash string
	State       State
	Metadata    Metadata
}

// HashContent computes the stable digest used as ContentHash. Content is
// hashed verbatim; canonicalisation (whitespace/key-order normalisation)
// is the responsibility of the per-format parser before this is called.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewSchema builds a Schema with a fresh identifier and a content hash
// derived from content.
func NewSchema(subject string, version Version, format Format, content []byte, meta Metadata) *Schema {
	return &Schema{
		ID:          uuid.New(),
		Subject:     subject,
		Version:     version,
		Format:      format,
		Content:     content,
		ContentHash: HashContent(content),
		State:       StateActive,
		Metadata:    meta,
	}
}

// IsLive reports whether the schema is addressable as a current version.
func (s *Schema) IsLive() bool {
	return s.State != StateDeleted && s.Metadata.DeletedAt == nil
}
