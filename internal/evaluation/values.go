package evaluation

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Number is a JSON number that tolerates numeric strings, null and garbage.
// Unusable input leaves it unset instead of failing the whole document.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = Number{Value: f, Valid: true}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = Number{Value: f, Valid: true}
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns the value, or def when unset.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Int returns the value truncated to an int, or def when unset.
func (n Number) Int(def int) int {
	if !n.Valid {
		return def
	}
	return int(n.Value)
}

// Num builds a valid Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Timestamp accepts RFC 3339 strings or epoch milliseconds. Anything else is treated as absent.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z0700"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return nil
	}

	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil && ms > 0 {
		t.Time = time.UnixMilli(int64(ms)).UTC()
	}
	return nil
}

// Ptr returns nil for an absent timestamp.
func (t *Timestamp) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// At builds a present Timestamp.
func At(v time.Time) *Timestamp {
	return &Timestamp{Time: v}
}

// object splits a JSON object into its members. Non-objects yield an empty map.
func object(raw json.RawMessage) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]json.RawMessage{}
	}
	return out
}

// lenient decodes raw into dst and reports whether it succeeded. dst is left as
// decoded so far on failure, so callers should pass zero values.
func lenient(raw json.RawMessage, dst any) bool {
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// list decodes a JSON array of T, dropping elements that do not decode.
func list[T any](raw json.RawMessage) []T {
	var items []json.RawMessage
	if !lenient(raw, &items) {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if lenient(item, &v) {
			out = append(out, v)
		}
	}
	return out
}

// text returns a JSON string member, or "" when absent or not a string.
func text(raw json.RawMessage) string {
	var s string
	if lenient(raw, &s) {
		return s
	}
	return ""
}
