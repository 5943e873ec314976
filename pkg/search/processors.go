package search

import (
	"strings"

	"github.com/ethpandaops/buildhistory/pkg/history"
)

// Search terms
const (
	TermName        = "name"
	TermDescription = "desc"
	TermResult      = "result"
	TermDateFrom    = "date-from"
	TermDateTo      = "date-to"
)

func init() {
	RegisterFactory(TermName, textFactory{term: TermName, extract: entryName})
	RegisterFactory(TermDescription, textFactory{term: TermDescription, extract: entryDescription})
	RegisterFactory(TermResult, resultFactory{})
	RegisterFactory("date", dateFactory{})
}

func entryName(entry history.Entry) string {
	switch e := entry.(type) {
	case *history.QueuedEntry:
		return e.Job
	case *history.CompletedEntry:
		return e.DisplayName
	default:
		return ""
	}
}

func entryDescription(entry history.Entry) string {
	switch e := entry.(type) {
	case *history.QueuedEntry:
		return e.Cause
	case *history.CompletedEntry:
		return e.Description
	default:
		return ""
	}
}

// textFactory matches entries whose extracted text contains any of the term
// values, case-insensitively
type textFactory struct {
	term    string
	extract func(history.Entry) string
}

func (f textFactory) Terms() []string {
	return []string{f.term}
}

func (f textFactory) Create(params *Params) Predicate {
	var needles []string
	for _, value := range params.Values(f.term) {
		if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
			needles = append(needles, value)
		}
	}

	if len(needles) == 0 {
		return nil
	}

	return textPredicate{needles: needles, extract: f.extract}
}

type textPredicate struct {
	needles []string
	extract func(history.Entry) string
}

func (p textPredicate) Matches(entry history.Entry) bool {
	return p.matchesText(p.extract(entry))
}

func (p textPredicate) matchesText(text string) bool {
	text = strings.ToLower(text)
	for _, needle := range p.needles {
		if strings.Contains(text, needle) {
			return true
		}
	}

	return false
}

// resultFactory matches finished records with one of the named results.
// Unknown result names are dropped; queued and running entries never match.
type resultFactory struct{}

func (resultFactory) Terms() []string {
	return []string{TermResult}
}

func (resultFactory) Create(params *Params) Predicate {
	values := params.Values(TermResult)
	if len(values) == 0 {
		return nil
	}

	results := make(map[history.Result]struct{}, len(values))
	for _, value := range values {
		if result, err := history.ParseResult(value); err == nil {
			results[result] = struct{}{}
		}
	}

	return resultPredicate{results: results}
}

type resultPredicate struct {
	results map[history.Result]struct{}
}

func (p resultPredicate) Matches(entry history.Entry) bool {
	run, ok := entry.(*history.CompletedEntry)
	if !ok || run.Result == nil {
		return false
	}

	return p.matchesResult(*run.Result)
}

func (p resultPredicate) matchesResult(result history.Result) bool {
	_, ok := p.results[result]
	return ok
}
