package relevance_test

import (
	"reflect"
	"testing"

	"shelfsync/internal/relevance"
)

func catalogFixture() []relevance.Candidate {
	return []relevance.Candidate{
		relevance.NewCandidate(1, "Хроники Заката", "Иван Иванов"),
		relevance.NewCandidate(2, "Закат", "Петров"),
		relevance.NewCandidate(3, "Хроники Рассвета", "Иван Иванов"),
	}
}

func TestBestMatchScenario(t *testing.T) {
	matcher := relevance.NewMatcher(relevance.DefaultWeights())

	best := matcher.BestMatch("Иванов_Иван_Хроники_Заката.zip", catalogFixture(), 50)
	if best == nil {
		t.Fatal("expected a best match")
	}
	if best.Candidate.ID != 1 {
		t.Fatalf("expected book 1, got %d", best.Candidate.ID)
	}
	if best.Score < 70 {
		t.Fatalf("expected confident score, got %d", best.Score)
	}
}

func TestBestMatchRespectsThreshold(t *testing.T) {
	matcher := relevance.NewMatcher(relevance.DefaultWeights())
	candidates := catalogFixture()

	confident := matcher.BestMatch("Иванов_Иван_Хроники_Заката.zip", candidates, 50)
	if confident == nil {
		t.Fatal("expected match at threshold 50")
	}

	// A score exactly at the threshold is accepted; one point above the
	// score is not.
	atThreshold := matcher.BestMatch("Иванов_Иван_Хроники_Заката.zip", candidates, confident.Score)
	if atThreshold == nil {
		t.Fatal("score equal to threshold must be accepted")
	}
	aboveScore := matcher.BestMatch("Иванов_Иван_Хроники_Заката.zip", candidates, confident.Score+1)
	if aboveScore != nil {
		t.Fatalf("threshold above best score must reject, got %d", aboveScore.Score)
	}
}

func TestRaisingThresholdNeverIncreasesScore(t *testing.T) {
	matcher := relevance.NewMatcher(relevance.DefaultWeights())
	candidates := catalogFixture()

	prevScore := -1
	for threshold := 0; threshold <= 200; threshold += 25 {
		best := matcher.BestMatch("Иванов_Иван_Хроники_Заката.zip", candidates, threshold)
		if best == nil {
			continue
		}
		if best.Score < threshold {
			t.Fatalf("returned score %d below threshold %d", best.Score, threshold)
		}
		if prevScore >= 0 && best.Score > prevScore {
			t.Fatalf("raising threshold increased score: %d -> %d", prevScore, best.Score)
		}
		prevScore = best.Score
	}
}

func TestRankOrderingAndLimit(t *testing.T) {
	matcher := relevance.NewMatcher(relevance.DefaultWeights())
	candidates := catalogFixture()

	ranked := matcher.Rank("Иванов_Иван_Хроники_Заката.zip", candidates, 0, 0)
	if len(ranked) == 0 {
		t.Fatal("expected ranked results")
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("ranking not descending at %d", i)
		}
	}

	limited := matcher.Rank("Иванов_Иван_Хроники_Заката.zip", candidates, 0, 2)
	if len(limited) > 2 {
		t.Fatalf("limit not applied: got %d results", len(limited))
	}
}

func TestRankStableTieBreak(t *testing.T) {
	matcher := relevance.NewMatcher(relevance.DefaultWeights())
	// Two identical books: insertion order must decide.
	candidates := []relevance.Candidate{
		relevance.NewCandidate(7, "Хроники Заката", "Иван Иванов"),
		relevance.NewCandidate(8, "Хроники Заката", "Иван Иванов"),
	}

	ranked := matcher.Rank("Иванов_Иван_Хроники_Заката.zip", candidates, 0, 0)
	if len(ranked) != 2 {
		t.Fatalf("expected both candidates ranked, got %d", len(ranked))
	}
	if ranked[0].Candidate.ID != 7 {
		t.Fatalf("tie-break must keep first-seen candidate, got %d", ranked[0].Candidate.ID)
	}
}

func TestRankDeterministic(t *testing.T) {
	matcher := relevance.NewMatcher(relevance.DefaultWeights())
	candidates := catalogFixture()

	extract := func() []int64 {
		var ids []int64
		for _, m := range matcher.Rank("Иванов_Иван_Хроники_Заката.zip", candidates, 0, 0) {
			ids = append(ids, m.Candidate.ID)
		}
		return ids
	}

	first := extract()
	for i := 0; i < 5; i++ {
		if got := extract(); !reflect.DeepEqual(got, first) {
			t.Fatalf("ranking order unstable: %v vs %v", got, first)
		}
	}
}

func TestRankFiltersBelowMinScore(t *testing.T) {
	matcher := relevance.NewMatcher(relevance.DefaultWeights())
	candidates := catalogFixture()

	ranked := matcher.Rank("Иванов_Иван_Хроники_Заката.zip", candidates, 50, 0)
	for _, m := range ranked {
		if m.Score < 50 {
			t.Fatalf("candidate below threshold leaked: %d", m.Score)
		}
		if m.Candidate.ID == 2 {
			t.Fatal("unrelated book must not pass the threshold")
		}
	}
}
