package source

import (
	"encoding/json"
	"time"
)

// Filter operators supported by the source API.
const (
	OpIs         = "is"
	OpIsAfter    = "is after"
	OpIsBefore   = "is before"
	OpIsNotBlank = "is not blank"
)

// Filter is one predicate pushed to the source so a time-windowed sync
// never fetches the entire remote dataset.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value,omitempty"`
}

// Equals builds an equality filter.
func Equals(fieldID, value string) Filter {
	return Filter{Field: fieldID, Operator: OpIs, Value: value}
}

// After builds an inclusive-start date filter. The source compares
// day-first date strings.
func After(fieldID string, t time.Time) Filter {
	return Filter{Field: fieldID, Operator: OpIsAfter, Value: t.Format("02/01/2006")}
}

// Before builds an inclusive-end date filter.
func Before(fieldID string, t time.Time) Filter {
	return Filter{Field: fieldID, Operator: OpIsBefore, Value: t.Format("02/01/2006")}
}

// NotBlank builds a presence filter.
func NotBlank(fieldID string) Filter {
	return Filter{Field: fieldID, Operator: OpIsNotBlank}
}

// encodeFilters renders the filter list as the JSON query parameter the
// API expects. An empty list encodes as "".
func encodeFilters(filters []Filter) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	payload := struct {
		Match string   `json:"match"`
		Rules []Filter `json:"rules"`
	}{Match: "and", Rules: filters}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
