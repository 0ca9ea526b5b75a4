package analytics

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate parses an optional bound given as YYYY-MM-DD or RFC 3339. Empty
// input yields nil.
func ParseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", v)
}

// ParsePeriod parses both bounds of a period.
func ParsePeriod(from, to string) (Period, error) {
	f, err := ParseDate(from)
	if err != nil {
		return Period{}, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return Period{}, err
	}
	if f != nil && t != nil && !t.After(*f) {
		return Period{}, fmt.Errorf("period end %s is not after its start %s", to, from)
	}
	return Period{From: f, To: t}, nil
}

// PreviousPeriod returns the span of the same length that ends where p starts.
// Open periods have no previous period.
func PreviousPeriod(p Period) Period {
	if p.From == nil || p.To == nil {
		return Period{}
	}
	span := p.To.Sub(*p.From)
	from := p.From.Add(-span)
	to := *p.From
	return Period{From: &from, To: &to}
}
