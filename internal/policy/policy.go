// Package policy defines the policy-search collaborator used for
// knowledge-lookup queries, plus an embedded-corpus implementation.
package policy

import (
	"context"
	"sort"
	"strings"

	"github.com/hrmate/hrmate/internal/hrerr"
	"github.com/hrmate/hrmate/internal/session"
)

// Answer is a policy lookup result with its citations.
type Answer struct {
	Text    string
	Sources []session.Source
}

// Searcher answers policy questions. Implementations may report being
// unavailable via an external-service error; callers degrade, they do
// not crash the turn.
type Searcher interface {
	Search(ctx context.Context, query string) (*Answer, error)
}

// Document is one policy article in the corpus.
type Document struct {
	Title   string
	Locator string
	Body    string
}

// CorpusSearcher answers from an in-memory document corpus with keyword
// overlap scoring. It stands in for an external knowledge service and
// is safe for concurrent use.
type CorpusSearcher struct {
	docs        []Document
	unavailable bool
}

// NewCorpusSearcher creates a searcher over docs. A nil corpus gets the
// built-in default policies.
func NewCorpusSearcher(docs []Document) *CorpusSearcher {
	if docs == nil {
		docs = defaultCorpus
	}
	return &CorpusSearcher{docs: docs}
}

// NewUnavailableSearcher creates a searcher that always reports the
// policy service as down. Used to exercise degraded paths.
func NewUnavailableSearcher() *CorpusSearcher {
	return &CorpusSearcher{unavailable: true}
}

// Search returns the best-matching document's text, or an external
// error when nothing matches or the service is unavailable.
func (s *CorpusSearcher) Search(_ context.Context, query string) (*Answer, error) {
	if s.unavailable {
		return nil, hrerr.Externalf("policy search is currently unavailable")
	}

	words := tokenize(query)
	if len(words) == 0 {
		return nil, hrerr.Validationf("query is empty")
	}

	type scored struct {
		doc   Document
		score int
	}
	var hits []scored
	for _, d := range s.docs {
		score := overlap(words, tokenize(d.Title))*2 + overlap(words, tokenize(d.Body))
		if score > 0 {
			hits = append(hits, scored{d, score})
		}
	}
	if len(hits) == 0 {
		return nil, hrerr.NotFoundf("no policy found matching %q", query)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	best := hits[0].doc
	return &Answer{
		Text:    best.Body,
		Sources: []session.Source{{Content: best.Title, Locator: best.Locator}},
	}, nil
}

func tokenize(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, "?.,!\"'")
		if len(w) > 2 {
			words[w] = true
		}
	}
	return words
}

func overlap(query, doc map[string]bool) int {
	n := 0
	for w := range query {
		if doc[w] {
			n++
		}
	}
	return n
}

var defaultCorpus = []Document{
	{
		Title:   "Annual Leave Policy",
		Locator: "policies/leave.md#annual",
		Body: "Full-time employees accrue 20 annual leave days per calendar year. " +
			"Leave must be requested in advance and approved by your manager. " +
			"Unused days do not carry over past March 31 of the following year.",
	},
	{
		Title:   "Sick Leave Policy",
		Locator: "policies/leave.md#sick",
		Body: "Employees receive 10 paid sick days per year. A medical certificate " +
			"is required for absences longer than two consecutive days.",
	},
	{
		Title:   "Attendance and Working Hours",
		Locator: "policies/attendance.md",
		Body: "Core working hours are 10:00 to 16:00. Employees clock in and out " +
			"through the HR portal; three late arrivals in a month trigger a " +
			"conversation with your manager, not a penalty.",
	},
	{
		Title:   "Payroll Schedule",
		Locator: "policies/payroll.md",
		Body: "Salaries are paid on the 28th of each month. Payslips are available " +
			"in the portal on payday and questions go to payroll@company within 30 days.",
	},
	{
		Title:   "Code of Conduct",
		Locator: "policies/conduct.md",
		Body: "We expect professional, respectful behavior toward colleagues and " +
			"customers. Gifts above a nominal value must be declared to compliance.",
	},
}
