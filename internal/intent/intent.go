// Package intent classifies employee queries into HR domains.
//
// Classification is a tiered, first-match-wins keyword heuristic.
// Explicit policy vocabulary and informational phrasing outrank
// transactional keyword scoring, so "What is the leave policy?" routes
// to knowledge lookup instead of the transactional leave agent.
package intent

import "strings"

// Intent is the classified category of a user query.
type Intent string

const (
	Leave      Intent = "leave"
	Attendance Intent = "attendance"
	Payroll    Intent = "payroll"
	Policy     Intent = "policy"
	GeneralHR  Intent = "general_hr"
	Unknown    Intent = "unknown"
)

// policyVocab routes straight to knowledge lookup regardless of other
// keywords in the query.
var policyVocab = []string{
	"policy",
	"policies",
	"handbook",
	"guideline",
	"code of conduct",
	"procedure",
	"entitlement rules",
}

// informationalPatterns mark a question as a knowledge lookup, unless a
// transactional verb is also present.
var informationalPatterns = []string{
	"what is",
	"what are",
	"how many",
	"how much",
	"explain",
	"tell me about",
	"eligibility",
	"am i eligible",
}

// actionVerbs mark a query as transactional, overriding informational
// phrasing.
var actionVerbs = []string{
	"apply",
	"cancel",
	"submit",
	"request",
	"book",
	"check my",
	"show my",
	"view my",
}

// domainVocab is the per-domain keyword vocabulary for tier-3 scoring.
// Order matters: on a score tie the earlier domain wins (see Classify).
var domainVocab = []struct {
	intent   Intent
	keywords []string
}{
	{Leave, []string{
		"leave", "vacation", "pto", "time off", "day off",
		"sick day", "annual leave", "casual leave",
	}},
	{Attendance, []string{
		"attendance", "check-in", "check in", "check-out", "check out",
		"clock", "shift", "absent", "present", "working hours", "holiday",
	}},
	{Payroll, []string{
		"payslip", "salary", "payroll", "pay slip", "tax",
		"deduction", "bonus", "compensation", "ctc",
	}},
}

var questionWords = []string{
	"what", "how", "when", "who", "where", "why",
	"can", "could", "should", "is", "are", "do", "does",
}

// Classify maps a query to an Intent. It is a pure function:
// deterministic for identical input, no side effects.
//
// Tie-breaking between equally scoring domains follows the fixed order
// Leave > Attendance > Payroll, so classification stays deterministic.
func Classify(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Unknown
	}

	if containsAny(q, policyVocab) {
		return Policy
	}

	if containsAny(q, informationalPatterns) && !containsAny(q, actionVerbs) {
		return Policy
	}

	best, bestScore := Unknown, 0
	for _, d := range domainVocab {
		score := 0
		for _, kw := range d.keywords {
			if strings.Contains(q, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = d.intent, score
		}
	}
	if bestScore > 0 {
		return best
	}

	if hasQuestionWord(q) {
		return GeneralHR
	}

	return Unknown
}

func containsAny(q string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// hasQuestionWord matches whole words only, so "whatever"
// does not count as "what".
func hasQuestionWord(q string) bool {
	for _, w := range strings.FieldsFunc(q, func(r rune) bool {
		return r == ' ' || r == '?' || r == ',' || r == '.' || r == '!'
	}) {
		for _, qw := range questionWords {
			if w == qw {
				return true
			}
		}
	}
	return false
}
