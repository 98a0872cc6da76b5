// Package source reads paginated records from the remote assessment
// platform's REST API.
package source

import (
	"encoding/json"
	"fmt"
)

// Record is one raw source row: an opaque id plus a map of field-id to
// value. Values keep their wire shapes (scalar, HTML-wrapped string, or
// connection list); the field package normalizes them downstream.
type Record struct {
	ID     string
	Fields map[string]any
}

// UnmarshalJSON splits the wire object into the id and the field map.
func (r *Record) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	id, _ := raw["id"].(string)
	delete(raw, "id")
	r.ID = id
	r.Fields = raw
	return nil
}

// Page is one page of a stream listing.
type Page struct {
	Records      []Record `json:"records"`
	TotalPages   int      `json:"total_pages"`
	TotalRecords int      `json:"total_records"`
}
