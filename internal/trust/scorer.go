// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Package trust scores text content for AI-generation likelihood using
// transparent, independently explainable heuristics. Every point the scorer
// adds is paired with a human-auditable flag, so a moderator reviewing a
// flagged account can see exactly which signals fired and why.
//
// The scorer is deliberately not a classifier model: it is a deterministic
// pure function over the text, reproducible in a moderation dispute.
package trust

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Trollz1004/trustgate/internal/metrics"
)

// Classification buckets for a content trust score.
type Classification string

const (
	ClassHuman      Classification = "HUMAN"
	ClassLowAI      Classification = "LOW_AI"
	ClassPossibleAI Classification = "POSSIBLE_AI"
	ClassHighAI     Classification = "HIGH_AI"
)

// Recommendation values produced by message-pattern analysis.
const (
	RecommendNormal              = "NORMAL"
	RecommendRequireVerification = "REQUIRE_VERIFICATION"
	RecommendFlagAccount         = "FLAG_ACCOUNT"
)

// minScorableLength is the shortest text the heuristics can say anything
// about. Below it the score is 0 unconditionally.
const minScorableLength = 10

// minPatternMessages is the smallest message sample that pattern analysis
// accepts.
const minPatternMessages = 3

// ErrInsufficientMessages is returned by AnalyzeMessagePattern when fewer
// than minPatternMessages messages are supplied.
var ErrInsufficientMessages = errors.New("message pattern analysis requires at least 3 messages")

// TrustAssessment is the result of scoring one piece of text.
type TrustAssessment struct {
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	Flags          []string       `json:"flags"`
}

// PatternAnalysis is the result of scoring a user's recent message history.
type PatternAnalysis struct {
	AverageScore   int    `json:"average_score"`
	IsLikelyBot    bool   `json:"is_likely_bot"`
	Recommendation string `json:"recommendation"`
	SampleSize     int    `json:"sample_size"`
}

// selfRefPattern is one AI self-reference regex with its score weight.
// These are the strongest signals: a first-person admission of being a
// model outweighs any stylistic tell.
type selfRefPattern struct {
	re     *regexp.Regexp
	weight int
	flag   string
}

var selfRefPatterns = []selfRefPattern{
	{regexp.MustCompile(`(?i)\bas an? AI\b`), 40, "ai_self_reference"},
	{regexp.MustCompile(`(?i)\bas a (large )?language model\b`), 40, "ai_self_reference"},
	{regexp.MustCompile(`(?i)\bI('m| am) an? (AI|artificial intelligence|language model|chatbot|virtual assistant)\b`), 35, "ai_self_reference"},
	{regexp.MustCompile(`(?i)\bI (do not|don't) have (personal )?(feelings|emotions|opinions|experiences|preferences)\b`), 30, "ai_disclaimer"},
	{regexp.MustCompile(`(?i)\bI (cannot|can't) (feel|experience|form) `), 25, "ai_disclaimer"},
	{regexp.MustCompile(`(?i)\bmy training data\b`), 30, "ai_self_reference"},
	{regexp.MustCompile(`(?i)\bmy knowledge cutoff\b`), 30, "ai_self_reference"},
}

// formalConnectives is the stilted-register lexicon. Each distinct hit adds
// its weight; three or more distinct hits add a flat style-uniformity bonus.
var formalConnectives = map[string]int{
	"furthermore":     5,
	"notwithstanding": 5,
	"henceforth":      6,
	"aforementioned":  6,
	"pursuant":        6,
	"moreover":        4,
	"nevertheless":    4,
	"consequently":    4,
	"thusly":          6,
	"heretofore":      6,
}

// styleUniformityBonus is added when ≥3 distinct formal connectives appear.
const styleUniformityBonus = 10

// hedgingPhrases are the canonical hedging constructions; two or more
// distinct matches add hedgingWeight.
var hedgingPhrases = []string{
	"it's important to note",
	"it is worth mentioning",
	"generally speaking",
	"in many cases",
	"it depends on",
}

const hedgingWeight = 12

// Sentence-uniformity thresholds: with ≥3 sentences, a mean length over 50
// characters and a mean absolute deviation under 15 reads as machine rhythm.
const (
	uniformityMinSentences  = 3
	uniformityMinMeanLength = 50.0
	uniformityMaxDeviation  = 15.0
	uniformityWeight        = 10
)

// Punctuation-density thresholds: three or more em-dashes or semicolons.
const (
	punctuationThreshold = 3
	punctuationWeight    = 8
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// ScoreText computes a trust assessment for a piece of text. The score is
// clamped to [0,100]; higher means more likely machine-generated.
func ScoreText(text string) TrustAssessment {
	if len(strings.TrimSpace(text)) < minScorableLength {
		return TrustAssessment{Score: 0, Classification: ClassHuman}
	}

	score := 0
	var flags []string

	for _, p := range selfRefPatterns {
		if p.re.MatchString(text) {
			score += p.weight
			flags = append(flags, fmt.Sprintf("%s: %s (+%d)", p.flag, p.re.String(), p.weight))
		}
	}

	lowered := strings.ToLower(text)

	distinct := 0
	for word, weight := range formalConnectives {
		if containsWord(lowered, word) {
			score += weight
			distinct++
			flags = append(flags, fmt.Sprintf("formal_connective: %q (+%d)", word, weight))
		}
	}
	if distinct >= 3 {
		score += styleUniformityBonus
		flags = append(flags, fmt.Sprintf("style_uniformity: %d distinct formal connectives (+%d)", distinct, styleUniformityBonus))
	}

	if bonus, mean, dev := sentenceUniformity(text); bonus {
		score += uniformityWeight
		flags = append(flags, fmt.Sprintf("sentence_uniformity: mean=%.0f deviation=%.1f (+%d)", mean, dev, uniformityWeight))
	}

	emDashes := strings.Count(text, "—")
	semicolons := strings.Count(text, ";")
	if emDashes >= punctuationThreshold || semicolons >= punctuationThreshold {
		score += punctuationWeight
		flags = append(flags, fmt.Sprintf("punctuation_density: %d em-dashes, %d semicolons (+%d)", emDashes, semicolons, punctuationWeight))
	}

	hedges := 0
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lowered, phrase) {
			hedges++
		}
	}
	if hedges >= 2 {
		score += hedgingWeight
		flags = append(flags, fmt.Sprintf("hedging: %d distinct hedging phrases (+%d)", hedges, hedgingWeight))
	}

	score = clamp(score)
	classification := classify(score)
	metrics.RecordTrustScore(string(classification), score)

	return TrustAssessment{
		Score:          score,
		Classification: classification,
		Flags:          flags,
	}
}

// AnalyzeMessagePattern scores each message and maps the average onto a
// moderation recommendation. It needs at least 3 messages; a smaller sample
// is too noisy to act on.
func AnalyzeMessagePattern(messages []string) (PatternAnalysis, error) {
	if len(messages) < minPatternMessages {
		return PatternAnalysis{}, ErrInsufficientMessages
	}

	total := 0
	for _, msg := range messages {
		total += ScoreText(msg).Score
	}
	avg := total / len(messages)

	recommendation := RecommendNormal
	switch {
	case avg >= 70:
		recommendation = RecommendFlagAccount
	case avg >= 50:
		recommendation = RecommendRequireVerification
	}

	return PatternAnalysis{
		AverageScore:   avg,
		IsLikelyBot:    avg >= 50,
		Recommendation: recommendation,
		SampleSize:     len(messages),
	}, nil
}

// sentenceUniformity reports whether the text's sentence lengths are
// suspiciously uniform. Requires at least uniformityMinSentences sentences.
func sentenceUniformity(text string) (bool, float64, float64) {
	parts := sentenceSplit.Split(text, -1)
	var lengths []float64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			lengths = append(lengths, float64(len(p)))
		}
	}
	if len(lengths) < uniformityMinSentences {
		return false, 0, 0
	}

	mean := 0.0
	for _, l := range lengths {
		mean += l
	}
	mean /= float64(len(lengths))

	dev := 0.0
	for _, l := range lengths {
		d := l - mean
		if d < 0 {
			d = -d
		}
		dev += d
	}
	dev /= float64(len(lengths))

	return dev < uniformityMaxDeviation && mean > uniformityMinMeanLength, mean, dev
}

// containsWord reports whether lowered text contains word with non-letter
// boundaries on both sides.
func containsWord(lowered, word string) bool {
	for start := 0; ; {
		i := strings.Index(lowered[start:], word)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isLetter(lowered[i-1])
		end := i + len(word)
		after := end == len(lowered) || !isLetter(lowered[end])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func classify(score int) Classification {
	switch {
	case score >= 80:
		return ClassHighAI
	case score >= 50:
		return ClassPossibleAI
	case score >= 25:
		return ClassLowAI
	default:
		return ClassHuman
	}
}
