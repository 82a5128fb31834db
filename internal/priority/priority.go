// Package priority predicts a complaint's priority tier from its text and
// optional category using keyword and phrase hit counts.
package priority

import (
	"fmt"
	"math"
	"strings"

	"pcrm/api/internal/nlp"
)

// Tier is a discrete priority level. Higher is more urgent.
type Tier int

const (
	Low Tier = iota
	Medium
	High
	Critical
)

// noCategory marks a missing or unmatched category.
const noCategory Tier = -1

var tierLabels = [...]string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (t Tier) String() string {
	if t < Low || t > Critical {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierLabels[t]
}

// MarshalText encodes the tier as its label.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTier parses a tier label, case-insensitively.
func ParseTier(label string) (Tier, error) {
	for i, l := range tierLabels {
		if strings.EqualFold(strings.TrimSpace(label), l) {
			return Tier(i), nil
		}
	}
	return Medium, fmt.Errorf("unknown priority %q", label)
}

// Signals are the raw counts behind a prediction.
type Signals struct {
	CriticalHits int
	HighHits     int
	LowHits      int
	CategoryTier Tier
}

// Prediction is a tier with a confidence reflecting signal strength, not a
// probability.
type Prediction struct {
	Tier       Tier
	Confidence float64
	Signals    Signals
}

// Default is returned for empty descriptions.
var Default = Prediction{Tier: Medium, Confidence: 0.5, Signals: Signals{CategoryTier: noCategory}}

// Predict classifies description. category may be empty.
func Predict(description, category string) Prediction {
	if strings.TrimSpace(description) == "" {
		return Default
	}

	lower := strings.ToLower(description)
	signals := Signals{CategoryTier: categoryTier(category)}
	for token := range nlp.Tokens(description) {
		if criticalKeywords.Has(token) {
			signals.CriticalHits++
		}
		if highKeywords.Has(token) {
			signals.HighHits++
		}
		if lowKeywords.Has(token) {
			signals.LowHits++
		}
	}
	signals.CriticalHits += phraseHits(lower, criticalPhrases)
	signals.HighHits += phraseHits(lower, highPhrases)
	signals.LowHits += phraseHits(lower, lowPhrases)

	tier, confidence := resolve(signals)

	// The category acts as a floor on the tier.
	if signals.CategoryTier > tier {
		tier = signals.CategoryTier
		confidence = math.Max(confidence, 0.52)
	}
	tier = Tier(min(max(int(tier), int(Low)), int(Critical)))

	return Prediction{Tier: tier, Confidence: round4(confidence), Signals: signals}
}

func resolve(s Signals) (Tier, float64) {
	critical, high, low, category := float64(s.CriticalHits), float64(s.HighHits), float64(s.LowHits), s.CategoryTier
	switch {
	case s.CriticalHits >= 1:
		return Critical, math.Min(0.97, 0.75+critical*0.08)
	case s.HighHits >= 3 || (s.HighHits >= 1 && category >= Critical):
		return High, math.Min(0.92, 0.65+high*0.05)
	case s.HighHits >= 1 || category >= High:
		bonus := 0.0
		if category >= High {
			bonus = 0.05
		}
		return High, math.Min(0.80, 0.55+high*0.04+bonus)
	case s.LowHits > 0:
		tier := Low
		if category >= Medium {
			tier = Medium
		}
		return tier, math.Min(0.85, 0.58+low*0.08)
	case category >= Low:
		return category, 0.55
	default:
		return Medium, 0.45
	}
}

func phraseHits(lower string, phrases []string) int {
	hits := 0
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			hits += 2
		}
	}
	return hits
}

func categoryTier(category string) Tier {
	lower := strings.ToLower(strings.TrimSpace(category))
	if lower == "" {
		return noCategory
	}
	best := noCategory
	for _, rule := range categoryRules {
		if strings.Contains(lower, rule.substring) && rule.tier > best {
			best = rule.tier
		}
	}
	return best
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
