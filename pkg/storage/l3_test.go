package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaKey(t *testing.T) {
	require.Equal(t, "schemas/abc-123", schemaKey("abc-123"))
}

func TestContentAddressedKey_ShardsByFirstTwoHexChars(t *testing.T) {
	hash := "deadbeefcafef00d"
	key := contentAddressedKey(hash)
	require.Equal(t, "schemas/sha256/de/adbeefcafef00d", key)
}
