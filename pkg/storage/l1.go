package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/schemaforge/registry-core/pkg/model"
)

// l1Cache is the in-process hot tier: a size-bounded LRU keyed by schema
// id, evicted on size limit or per-entry TTL. L1 failures cannot occur —
// it is in-process and never suspends.
type l1Cache struct {
	lru *expirable.LRU[uuid.UUID, *model.Schema]
}

func newL1Cache(size int, ttl time.Duration) *l1Cache {
	return &l1Cache{lru: expirable.NewLRU[uuid.UUID, *model.Schema](size, nil, ttl)}
}

func (c *l1Cache) Get(id uuid.UUID) (*model.Schema, bool) {
	return c.lru.Get(id)
}

func (c *l1Cache) Put(schema *model.Schema) {
	c.lru.Add(schema.ID, schema)
}

func (c *l1Cache) Invalidate(id uuid.UUID) {
	c.lru.Remove(id)
}

func (c *l1Cache) Len() int { return c.lru.Len() }
