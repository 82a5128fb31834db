// Package sentiment scores the tone of complaint text on [-1, 1] using a
// fixed lexicon with negation and intensifier windows.
package sentiment

import (
	"math"

	"pcrm/api/internal/nlp"
)

const (
	intensifyFactor = 1.5
	// modifierWindow is how many neutral tokens a pending modifier survives.
	modifierWindow = 2
)

// modifiers is the pending negation/intensifier state carried between tokens.
type modifiers struct {
	intensify float64
	negate    bool
	ticks     int
}

func newModifiers() modifiers {
	return modifiers{intensify: 1}
}

func (m modifiers) active() bool {
	return m.negate || m.intensify != 1
}

// step consumes one token and returns the updated state plus the token's
// contribution to the raw score.
func (m modifiers) step(token string) (modifiers, float64) {
	switch {
	case negators.Has(token):
		m.negate = true
		m.intensify = 1
		m.ticks = 0
		return m, 0
	case intensifiers.Has(token):
		m.intensify = intensifyFactor
		m.ticks = 0
		return m, 0
	}

	var word float64
	switch {
	case positiveWords.Has(token):
		word = 1
	case negativeWords.Has(token):
		word = -1
	}
	if word != 0 {
		contribution := word * m.intensify
		if m.negate {
			contribution = -contribution
		}
		return newModifiers(), contribution
	}

	if m.active() {
		m.ticks++
		if m.ticks > modifierWindow {
			return newModifiers(), 0
		}
	}
	return m, 0
}

// Score returns the sentiment of text rounded to four decimals. Empty text
// scores exactly 0.
func Score(text string) float64 {
	return scoreTokens(nlp.Tokenize(text))
}

// ScoreAny is Score for loosely typed input; non-strings score 0.
func ScoreAny(v any) float64 {
	return scoreTokens(nlp.TokenizeAny(v))
}

func scoreTokens(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	state := newModifiers()
	var raw float64
	for _, token := range tokens {
		var contribution float64
		state, contribution = state.step(token)
		raw += contribution
	}
	score := raw / math.Sqrt(float64(len(tokens)))
	return round4(clamp(score, -1, 1))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
