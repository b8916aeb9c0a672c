// Package crisis classifies free-text chat messages for self-harm and
// suicide risk. Detection is a pure substring scan against a ranked rule
// list; it performs no I/O and is safe to call from any number of
// concurrent requests.
package crisis

import (
	"strings"
)

type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Assessment struct {
	IsCrisis bool
	Severity Severity
	// MatchedPhrase is the winning trigger phrase. It goes into the audit
	// record only and is never shown to the user.
	MatchedPhrase string
}

type rule struct {
	phrase   string
	severity Severity
}

// rules are evaluated top to bottom; the first match wins, so the most
// direct self-harm phrases come first. Matching is deliberately loose
// substring containment: "hopelessly" triggers on "hopeless". Over-triggering
// is the accepted tradeoff here, because a missed disclosure is the graver
// failure.
var rules = []rule{
	{"kill myself", SeverityHigh},
	{"killing myself", SeverityHigh},
	{"suicide", SeverityHigh},
	{"suicidal", SeverityHigh},
	{"end my life", SeverityHigh},
	{"ending my life", SeverityHigh},
	{"want to die", SeverityHigh},
	{"better off dead", SeverityHigh},
	{"no reason to live", SeverityHigh},
	{"hurt myself", SeverityMedium},
	{"hurting myself", SeverityMedium},
	{"self-harm", SeverityMedium},
	{"self harm", SeverityMedium},
	{"cut myself", SeverityMedium},
	{"hopeless", SeverityMedium},
	{"worthless", SeverityMedium},
	{"can't go on", SeverityMedium},
	{"cant go on", SeverityMedium},
	{"give up on life", SeverityMedium},
}

// Detect scans a message for crisis trigger phrases and returns the
// classification for the first rule that matches.
func Detect(message string) Assessment {
	lowered := strings.ToLower(message)
	for _, r := range rules {
		if strings.Contains(lowered, r.phrase) {
			return Assessment{
				IsCrisis:      true,
				Severity:      r.severity,
				MatchedPhrase: r.phrase,
			}
		}
	}
	return Assessment{Severity: SeverityNone}
}

// HighSeverityPhrases returns the phrases classified as high severity, in
// priority order.
func HighSeverityPhrases() []string {
	return phrasesWithSeverity(SeverityHigh)
}

// MediumSeverityPhrases returns the phrases classified as medium severity,
// in priority order.
func MediumSeverityPhrases() []string {
	return phrasesWithSeverity(SeverityMedium)
}

func phrasesWithSeverity(severity Severity) []string {
	var phrases []string
	for _, r := range rules {
		if r.severity == severity {
			phrases = append(phrases, r.phrase)
		}
	}
	return phrases
}
