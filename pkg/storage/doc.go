// Package storage implements the registry's four-tier storage engine: an
// in-process LRU (L1), a network key-value cache (L2, Redis-compatible),
// a content-addressable object store (L3, S3-compatible), and a
// relational store of record (L4, PostgreSQL).
//
// # Read path
//
// Engine.Get checks L1, then L2, then L3, then L4, populating every
// tier above the one that answered. Concurrent misses on the same
// schema id are coalesced with golang.org/x/sync/singleflight so only
// one lower-tier fetch executes per id at a time; other callers await
// its result.
//
// # Write path
//
// Engine.Register commits to L4 first. Only on commit success are L3,
// L2, and L1 populated, in that order; a post-commit tier failure is
// logged but does not fail the write, since every upper tier is
// rebuildable from L4 on the next read. State transitions and soft
// deletes commit to L4 first, then invalidate L1/L2 and overwrite L3
// with the refreshed serialised form.
//
// # Coherence
//
// L4 is authoritative. Any discrepancy between L4 and an upper tier
// resolves to L4 on the next read; a single key's observable value may
// lag L4 by at most one TTL or one invalidation cycle. L2 and L3
// failures downgrade transparently to the next tier down; an L4
// failure is fatal for the request.
//
// # Search
//
// Search, ListSubjects, ListBySubject, and LatestVersion bypass L1/L2/L3
// and query L4 directly.
package storage
