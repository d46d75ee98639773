package storage

import (
	"encoding/json"

	"github.com/schemaforge/registry-core/pkg/model"
)

// encodeSchema/decodeSchema are the canonical serialised form shared by
// L2 and L3: JSON, chosen so L3 bodies double as human-inspectable
// objects in the bucket browser.
func encodeSchema(schema *model.Schema) ([]byte, error) {
	return json.Marshal(schema)
}

func decodeSchema(data []byte) (*model.Schema, bool, error) {
	var schema model.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, false, err
	}
	return &schema, true, nil
}
