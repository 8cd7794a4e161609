// Package tokens abstracts token counting behind a small capability
// interface, so the bundle composer never depends on a specific tokenizer
// library. A BPE-backed encoder can be registered per model family at
// startup; absent one, every family falls back to the same heuristic.
package tokens

import (
	"strings"
	"unicode"
)

// Family is a recognized model family for token accounting.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGeneric   Family = "generic"
)

// ParseFamily maps a config/flag string to a Family, defaulting to generic
// for anything unrecognized rather than failing startup over a typo.
func ParseFamily(s string) Family {
	switch Family(strings.ToLower(s)) {
	case FamilyOpenAI:
		return FamilyOpenAI
	case FamilyAnthropic:
		return FamilyAnthropic
	default:
		return FamilyGeneric
	}
}

// Encoder is a BPE-style token counter for one model family. Implementations
// live outside this package (none ship in this build) and are passed to New.
type Encoder func(text string) int

// Estimator counts tokens for a given model family. Estimate is pure and
// cheap: the bundle composer calls it once per candidate item, so it must
// not perform I/O.
type Estimator interface {
	Estimate(text string, family Family) int
}

type estimator struct {
	encoders map[Family]Encoder
}

// New constructs the default Estimator. encoders maps a family to a BPE
// Encoder for deployments that have one available; pass nil to always use
// the heuristic.
func New(encoders map[Family]Encoder) Estimator {
	if encoders == nil {
		encoders = map[Family]Encoder{}
	}
	return &estimator{encoders: encoders}
}

func (e *estimator) Estimate(text string, family Family) int {
	if enc, ok := e.encoders[family]; ok && enc != nil {
		return enc(text)
	}
	return Heuristic(text)
}

// Heuristic implements the default token-count estimate:
// max(1, ceil(words*1.25 + punctuation*0.5 + non_ascii*0.5)).
func Heuristic(text string) int {
	words := countWords(text)
	punctuation := countPunctuation(text)
	nonASCII := countNonASCII(text)

	estimate := float64(words)*1.25 + float64(punctuation)*0.5 + float64(nonASCII)*0.5
	rounded := int(estimate)
	if float64(rounded) < estimate {
		rounded++
	}
	if rounded < 1 {
		rounded = 1
	}
	return rounded
}

func countWords(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

const punctuationChars = ".,;:!?()[]{}\"'`"

func countPunctuation(text string) int {
	n := 0
	for _, r := range text {
		if strings.ContainsRune(punctuationChars, r) {
			n++
		}
	}
	return n
}

func countNonASCII(text string) int {
	n := 0
	for _, r := range text {
		if r > unicode.MaxASCII {
			n++
		}
	}
	return n
}
