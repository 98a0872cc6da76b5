// Package field normalizes the source's heterogeneous field encodings
// into plain scalar values.
//
// A source field may arrive as a bare scalar, an HTML-wrapped string, a
// nested connection object, or a list of connection objects, depending
// on upstream configuration. Decode resolves the shape exactly once at
// the boundary into a tagged Value; downstream code never re-inspects
// raw shapes. Every function here is total: malformed input yields a
// defined empty result, never a panic or an error.
package field

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind tags the resolved shape of a raw field value.
type Kind int

const (
	// Empty marks a missing, blank, or unrecognizable value.
	Empty Kind = iota
	// Scalar is a plain string or number.
	Scalar
	// HTMLWrapped is a string carrying markup, e.g. a mailto anchor.
	HTMLWrapped
	// Connection is one or more references to other source records.
	Connection
)

// Ref is a connection reference to another source record.
type Ref struct {
	ID    string
	Label string
}

// Value is the tagged union produced by Decode.
type Value struct {
	Kind Kind

	Text      string  // Scalar and HTMLWrapped: raw text
	Number    float64 // Scalar: numeric value when HasNumber
	HasNumber bool
	Refs      []Ref // Connection: in source order
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Decode resolves a raw field value into a tagged Value.
func Decode(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: Empty}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return Value{Kind: Empty}
		}
		if strings.Contains(s, "<") && tagPattern.MatchString(s) {
			return Value{Kind: HTMLWrapped, Text: s}
		}
		out := Value{Kind: Scalar, Text: s}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			out.Number = n
			out.HasNumber = true
		}
		return out
	case float64:
		return Value{Kind: Scalar, Text: strconv.FormatFloat(v, 'f', -1, 64), Number: v, HasNumber: true}
	case int:
		return Value{Kind: Scalar, Text: strconv.Itoa(v), Number: float64(v), HasNumber: true}
	case bool:
		return Value{Kind: Scalar, Text: strconv.FormatBool(v)}
	case map[string]any:
		if r, ok := refFromMap(v); ok {
			return Value{Kind: Connection, Refs: []Ref{r}}
		}
		return Value{Kind: Empty}
	case []any:
		refs := make([]Ref, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				if r, ok := refFromMap(it); ok {
					refs = append(refs, r)
				}
			case string:
				if s := strings.TrimSpace(it); s != "" {
					refs = append(refs, Ref{ID: s})
				}
			}
		}
		if len(refs) == 0 {
			return Value{Kind: Empty}
		}
		return Value{Kind: Connection, Refs: refs}
	default:
		return Value{Kind: Empty}
	}
}

func refFromMap(m map[string]any) (Ref, bool) {
	id, _ := m["id"].(string)
	if id == "" {
		return Ref{}, false
	}
	label, _ := m["identifier"].(string)
	if label == "" {
		label, _ = m["label"].(string)
	}
	return Ref{ID: id, Label: label}, true
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ExtractEmail returns a normalized lowercase email address, or "" when
// none can be found. Handles plain strings, mailto anchors, and
// {email: ...} objects.
func ExtractEmail(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		if inner, ok := m["email"].(string); ok {
			raw = inner
		}
	}
	v := Decode(raw)
	switch v.Kind {
	case Scalar, HTMLWrapped:
		if match := emailPattern.FindString(v.Text); match != "" {
			return strings.ToLower(match)
		}
	}
	return ""
}

// ExtractConnectionID returns the id of the first connection reference,
// accepting bare ids, {id,...} objects, and list-wrapped forms.
func ExtractConnectionID(raw any) (string, bool) {
	v := Decode(raw)
	switch v.Kind {
	case Connection:
		return v.Refs[0].ID, true
	case Scalar:
		if !v.HasNumber && v.Text != "" {
			return v.Text, true
		}
	}
	return "", false
}

// ExtractName returns a display string for a name field. Handles plain
// strings, HTML-wrapped strings, and {first, last} / {full} objects.
func ExtractName(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		if full, ok := m["full"].(string); ok && strings.TrimSpace(full) != "" {
			return strings.TrimSpace(full)
		}
		first, _ := m["first"].(string)
		last, _ := m["last"].(string)
		return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	}
	v := Decode(raw)
	switch v.Kind {
	case Scalar:
		return v.Text
	case HTMLWrapped:
		return StripTags(v.Text)
	case Connection:
		return v.Refs[0].Label
	}
	return ""
}

// CleanNumeric returns the integer value of a numeric field. Blank and
// non-numeric values yield no result rather than an error.
func CleanNumeric(raw any) (int, bool) {
	v := Decode(raw)
	if v.Kind == Scalar && v.HasNumber {
		return int(v.Number), true
	}
	return 0, false
}

// CleanFloat is CleanNumeric without the integer truncation.
func CleanFloat(raw any) (float64, bool) {
	v := Decode(raw)
	if v.Kind == Scalar && v.HasNumber {
		return v.Number, true
	}
	return 0, false
}

// Source date layouts, most specific first. The source emits UK-style
// day-first dates.
var dateLayouts = []string{
	time.RFC3339,
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02",
}

// ConvertDate parses a source date field into a UTC time. Accepts
// strings in the known layouts and {date: ..., iso_timestamp: ...}
// objects; anything else yields no result.
func ConvertDate(raw any) (time.Time, bool) {
	if m, ok := raw.(map[string]any); ok {
		if iso, ok := m["iso_timestamp"].(string); ok && iso != "" {
			raw = iso
		} else if d, ok := m["date"].(string); ok && d != "" {
			raw = d
		}
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// StripTags removes markup from an HTML-wrapped string and unescapes
// entities, collapsing runs of whitespace.
func StripTags(s string) string {
	out := tagPattern.ReplaceAllString(s, " ")
	out = html.UnescapeString(out)
	return strings.Join(strings.Fields(out), " ")
}
