package relevance_test

import (
	"testing"

	"shelfsync/internal/normalize"
	"shelfsync/internal/relevance"
)

func defaultScorer() *relevance.Scorer {
	return relevance.NewScorer(relevance.DefaultWeights())
}

func TestScoreEmptySides(t *testing.T) {
	scorer := defaultScorer()
	full := normalize.NewTokenSet("aa", "bb")
	if got := scorer.Score(normalize.TokenSet{}, full); got != 0 {
		t.Fatalf("empty file tokens: expected 0, got %d", got)
	}
	if got := scorer.Score(full, normalize.TokenSet{}); got != 0 {
		t.Fatalf("empty book tokens: expected 0, got %d", got)
	}
}

func TestScoreExactOverlapWithRatioBonus(t *testing.T) {
	scorer := defaultScorer()
	file := normalize.NewTokenSet("aa", "bb", "cc", "dd")
	book := normalize.NewTokenSet("aa", "bb", "cc", "dd")

	// 4 matches at 20 each, no penalties, full-ratio bonus of 20*1.0*4.
	if got := scorer.Score(file, book); got != 160 {
		t.Fatalf("expected 160, got %d", got)
	}
}

func TestScorePenalizesUnmatchedFileTokens(t *testing.T) {
	scorer := defaultScorer()
	file := normalize.NewTokenSet("aa", "bb", "cc", "dd", "ee", "ff")
	book := normalize.NewTokenSet("aa", "bb", "cc", "dd")

	// 4 matched, 2 unmatched: 80 - 20 - 10 = 50; ratio 0.67 earns no bonus.
	if got := scorer.Score(file, book); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestScoreClampsAtZero(t *testing.T) {
	scorer := defaultScorer()
	file := normalize.NewTokenSet("aa", "bb", "cc", "dd", "ee")
	book := normalize.NewTokenSet("zz")

	if got := scorer.Score(file, book); got != 0 {
		t.Fatalf("expected clamp at 0, got %d", got)
	}
}

func TestScoreRatioBonusBoundary(t *testing.T) {
	scorer := defaultScorer()
	// 4 of 5 matched: ratio 0.8, bonus floor(20*0.8*4) = 64.
	file := normalize.NewTokenSet("aa", "bb", "cc", "dd", "ee")
	book := normalize.NewTokenSet("aa", "bb", "cc", "dd")
	// 80 - 10 - 5 = 65; plus 64.
	if got := scorer.Score(file, book); got != 129 {
		t.Fatalf("expected 129 at the ratio boundary, got %d", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	scorer := defaultScorer()
	file := normalize.NewTokenSet("aa", "bb", "cc")
	book := normalize.NewTokenSet("bb", "cc", "dd")
	first := scorer.Score(file, book)
	for i := 0; i < 10; i++ {
		if got := scorer.Score(file, book); got != first {
			t.Fatalf("score not deterministic: %d vs %d", got, first)
		}
	}
}

func TestScoreCandidateSegmentedFullBonus(t *testing.T) {
	scorer := defaultScorer()
	candidate := relevance.NewCandidate(1, "Хроники Заката", "Иван Иванов")

	score, matched := scorer.ScoreCandidate("Иванов_Иван_Хроники_Заката.zip", candidate)
	// Token overlap 160 plus the full author+title segment bonus.
	if score != 185 {
		t.Fatalf("expected 185, got %d", score)
	}
	if matched.Len() != 4 {
		t.Fatalf("expected 4 matched words, got %v", matched.Words())
	}
}

func TestScoreCandidateSegmentedPartialBonus(t *testing.T) {
	scorer := defaultScorer()
	candidate := relevance.NewCandidate(1, "Хроники Рассвета", "Иван Иванов")

	// The author prefix matches fully but the title suffix does not.
	score, _ := scorer.ScoreCandidate("Иванов_Иван_Хроники_Заката.zip", candidate)
	base := scorer.Score(
		normalize.Tokens("Иванов_Иван_Хроники_Заката.zip"),
		normalize.Tokens("Хроники Рассвета").Union(normalize.Tokens("Иван Иванов")),
	)
	if score != base+15 {
		t.Fatalf("expected partial segment bonus of 15, got %d over base %d", score-base, base)
	}
}

func TestScoreCandidateUnrelatedBookStaysLow(t *testing.T) {
	scorer := defaultScorer()
	candidate := relevance.NewCandidate(2, "Закат", "Петров")

	score, _ := scorer.ScoreCandidate("Иванов_Иван_Хроники_Заката.zip", candidate)
	if score >= 20 {
		t.Fatalf("expected low score for unrelated book, got %d", score)
	}
}

func TestCustomWeights(t *testing.T) {
	scorer := relevance.NewScorer(relevance.Weights{
		WordMatchValue:      10,
		UnmatchedPenalty:    1,
		SecondaryPenalty:    1,
		RatioBonusThreshold: 0.9,
	})
	file := normalize.NewTokenSet("aa", "bb")
	book := normalize.NewTokenSet("aa")
	// 10 - 2 = 8, ratio 0.5 below custom threshold.
	if got := scorer.Score(file, book); got != 8 {
		t.Fatalf("expected 8 under custom weights, got %d", got)
	}
}
