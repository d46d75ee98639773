package model

// Tier identifies which level of the multi-tier storage hierarchy served
// (or would serve) a value.
type Tier string

const (
	TierL1 Tier = "l1_memory"
	TierL2 Tier = "l2_cache"
	TierL3 Tier = "l3_object_store"
	TierL4 Tier = "l4_relational"
)

// StorageEntry is the tier-independent envelope a read path returns.
type StorageEntry struct {
	Key         string
	Value       *Schema
	VersionTag  int64
	FetchedFrom Tier
}

// SearchQuery filters the L4 search/list surface. Zero values mean
// "no filter" for that field.
type SearchQuery struct {
	SubjectPattern string
	Format         Format
	Owner          string
	State          State
	Tags           []string
	SortBy         string
	Descending     bool
	Limit          int
	Offset         int
}

// Statistics summarises the relational store's contents.
type Statistics struct {
	TotalSchemas int64
	TotalSubjects int64
	Active       int64
	Deleted      int64
	Bytes        int64
}
