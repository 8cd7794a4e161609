package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicMinimumOne(t *testing.T) {
	assert.Equal(t, 1, Heuristic(""))
}

func TestHeuristicCountsWordsPunctuationNonASCII(t *testing.T) {
	// 2 words, 1 punctuation, 0 non-ascii: ceil(2*1.25 + 1*0.5) = ceil(3.0) = 3
	assert.Equal(t, 3, Heuristic("hi there!"))
}

func TestHeuristicNonASCII(t *testing.T) {
	got := Heuristic("héllo")
	assert.GreaterOrEqual(t, got, 1)
}

func TestEstimatorFallsBackToHeuristicWhenNoEncoderRegistered(t *testing.T) {
	est := New(nil)
	assert.Equal(t, Heuristic("plain text"), est.Estimate("plain text", FamilyOpenAI))
}

func TestEstimatorUsesRegisteredEncoder(t *testing.T) {
	est := New(map[Family]Encoder{
		FamilyOpenAI: func(string) int { return 42 },
	})
	assert.Equal(t, 42, est.Estimate("anything", FamilyOpenAI))
	assert.Equal(t, Heuristic("anything"), est.Estimate("anything", FamilyAnthropic))
}

func TestParseFamilyDefaultsToGeneric(t *testing.T) {
	assert.Equal(t, FamilyGeneric, ParseFamily("made-up"))
	assert.Equal(t, FamilyOpenAI, ParseFamily("OpenAI"))
}
