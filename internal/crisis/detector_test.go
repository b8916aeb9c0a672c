package crisis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHighSeverityPhrases(t *testing.T) {
	for _, phrase := range HighSeverityPhrases() {
		assessment := Detect(phrase)
		assert.True(t, assessment.IsCrisis, "phrase %q should be a crisis", phrase)
		assert.Equal(t, SeverityHigh, assessment.Severity, "phrase %q should be high severity", phrase)
	}
}

func TestDetectMediumSeverityPhrases(t *testing.T) {
	for _, phrase := range MediumSeverityPhrases() {
		assessment := Detect(phrase)
		require.True(t, assessment.IsCrisis, "phrase %q should be a crisis", phrase)
		// A medium phrase embedded in a longer high phrase would win as
		// high, but standalone medium phrases must classify as medium.
		assert.Equal(t, SeverityMedium, assessment.Severity, "phrase %q should be medium severity", phrase)
	}
}

func TestDetectInsideSentence(t *testing.T) {
	assessment := Detect("I want to kill myself today")
	assert.True(t, assessment.IsCrisis)
	assert.Equal(t, SeverityHigh, assessment.Severity)
	assert.Equal(t, "kill myself", assessment.MatchedPhrase)

	assessment = Detect("I feel hopeless about my exam")
	assert.True(t, assessment.IsCrisis)
	assert.Equal(t, SeverityMedium, assessment.Severity)
}

func TestDetectNoCrisis(t *testing.T) {
	assessment := Detect("I had a great day, feeling happy")
	assert.False(t, assessment.IsCrisis)
	assert.Equal(t, SeverityNone, assessment.Severity)
	assert.Empty(t, assessment.MatchedPhrase)
}

func TestDetectEmptyMessage(t *testing.T) {
	assessment := Detect("")
	assert.False(t, assessment.IsCrisis)
	assert.Equal(t, SeverityNone, assessment.Severity)
}

func TestDetectIsCaseInsensitive(t *testing.T) {
	assessment := Detect("SUICIDE")
	assert.True(t, assessment.IsCrisis)
	assert.Equal(t, SeverityHigh, assessment.Severity)
}

func TestDetectSubstringFalsePositiveIsAccepted(t *testing.T) {
	// Loose substring matching is deliberate: "hopelessly" contains
	// "hopeless" and triggers. Over-triggering is the accepted tradeoff.
	assessment := Detect("I'm hopelessly devoted to this show")
	assert.True(t, assessment.IsCrisis)
	assert.Equal(t, SeverityMedium, assessment.Severity)
}

func TestDetectFirstRuleWins(t *testing.T) {
	// Contains both a high phrase ("kill myself") and a medium phrase
	// ("hopeless"); the higher-priority rule must win regardless of the
	// order the words appear in the message.
	assessment := Detect("everything is hopeless and I want to kill myself")
	assert.Equal(t, SeverityHigh, assessment.Severity)
	assert.Equal(t, "kill myself", assessment.MatchedPhrase)
}

func TestNoCrisisImpliesSeverityNone(t *testing.T) {
	for _, message := range []string{"", "hello", "great workout today", "slept well"} {
		assessment := Detect(message)
		if !assessment.IsCrisis {
			assert.Equal(t, SeverityNone, assessment.Severity, "message %q", message)
		}
	}
}
