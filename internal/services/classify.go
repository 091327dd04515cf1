package services

import (
	"strings"

	"scribeflow/internal/models"
)

// Rule maps a set of trigger phrases to a conclusion and a human-readable
// reason. Matching is case-insensitive substring containment.
type Rule struct {
	Phrases    []string
	Conclusion models.Conclusion
	Reason     string
}

// DefaultRules is the call-outcome decision table, evaluated top to bottom
// with first match winning. Order is load-bearing: acceptance is checked
// before any decline rule, and the booking-specific decline outranks the
// generic impossibility phrases. Do not reorder without updating the tests
// that pin this precedence.
var DefaultRules = []Rule{
	{
		Phrases:    []string{"yes, i can", "i will do it", "i'll do it", "i accept", "sure, i will"},
		Conclusion: models.ConclusionAccepted,
		Reason:     "Caller agreed to take the job.",
	},
	{
		Phrases:    []string{"already booked", "prior booking"},
		Conclusion: models.ConclusionDeclined,
		Reason:     "Caller declined: the slot is already booked.",
	},
	{
		Phrases:    []string{"not possible", "i can't", "i cannot"},
		Conclusion: models.ConclusionDeclined,
		Reason:     "Caller declined: the request is not possible.",
	},
	{
		Phrases:    []string{"i'm busy", "i am busy", "no time"},
		Conclusion: models.ConclusionDeclined,
		Reason:     "Caller declined.",
	},
}

// UnclearReason is reported when no rule matches the transcript.
const UnclearReason = "Outcome not clearly stated in the call."

// Classify evaluates the rule table against a transcript.
func Classify(transcript string) (models.Conclusion, string) {
	return ClassifyWith(DefaultRules, transcript)
}

// ClassifyWith evaluates an explicit rule table, mostly so the table can be
// tested and extended in isolation from transcription.
func ClassifyWith(rules []Rule, transcript string) (models.Conclusion, string) {
	lower := strings.ToLower(transcript)
	for _, rule := range rules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lower, phrase) {
				return rule.Conclusion, rule.Reason
			}
		}
	}
	return models.ConclusionUnclear, UnclearReason
}

// excerptRunes bounds the transcript excerpt stored on a classification
// record.
const excerptRunes = 200

// Excerpt returns the leading portion of a transcript, bounded by rune count
// so multi-byte scripts are not cut mid-character.
func Excerpt(transcript string) string {
	trimmed := strings.TrimSpace(transcript)
	runes := []rune(trimmed)
	if len(runes) <= excerptRunes {
		return trimmed
	}
	return string(runes[:excerptRunes])
}
