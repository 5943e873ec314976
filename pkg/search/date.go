package search

import (
	"strings"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/history"
)

// Accepted date layouts for date-from: and date-to:, chosen by input length
const (
	LongDateLayout   = "2006-01-02"
	MediumDateLayout = "06-01-02"
	ShortDateLayout  = "01-02"
)

//nolint:gochecknoglobals // Overridden in tests
var now = time.Now

// ParseDate parses a search date in the local time zone. "/" is accepted in
// place of "-" and spaces are ignored. Dates without a year use the current
// year.
func ParseDate(value string) (time.Time, bool) {
	value = strings.ReplaceAll(value, "/", "-")
	value = strings.ReplaceAll(value, " ", "")

	var layout string
	switch len(value) {
	case len(LongDateLayout):
		layout = LongDateLayout
	case len(MediumDateLayout):
		layout = MediumDateLayout
	case len(ShortDateLayout):
		layout = ShortDateLayout
	default:
		return time.Time{}, false
	}

	parsed, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		return time.Time{}, false
	}

	if layout == ShortDateLayout {
		parsed = time.Date(now().Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.Local)
	}

	return parsed, true
}

// dateFactory filters on enqueue time for queued entries and start time for
// records. Only the first date-from: and date-to: are used.
type dateFactory struct{}

func (dateFactory) Terms() []string {
	return []string{TermDateFrom, TermDateTo}
}

func (dateFactory) Create(params *Params) Predicate {
	fromValues := params.Values(TermDateFrom)
	toValues := params.Values(TermDateTo)

	if len(fromValues) == 0 && len(toValues) == 0 {
		return nil
	}

	var p datePredicate

	if len(fromValues) > 0 {
		if from, ok := ParseDate(fromValues[0]); ok {
			p.from = &from
		}
	}

	if len(toValues) > 0 {
		if to, ok := ParseDate(toValues[0]); ok {
			// date-to: covers the whole day
			end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
			p.to = &end
		}
	}

	// A range ending before it starts keeps only the lower bound
	if p.from != nil && p.to != nil && !p.from.Before(*p.to) {
		p.to = nil
	}

	return p
}

type datePredicate struct {
	from *time.Time
	to   *time.Time
}

func (p datePredicate) Matches(entry history.Entry) bool {
	return p.matchesTime(entry.Timestamp())
}

func (p datePredicate) matchesTime(ts time.Time) bool {
	if p.from != nil && ts.Before(*p.from) {
		return false
	}

	if p.to != nil && ts.After(*p.to) {
		return false
	}

	return true
}
