package relevance

import "shelfsync/internal/config"

// Weights parameterizes the scorer. The historical defaults were tuned
// empirically against a mostly-Russian catalog; treat them as a starting
// point, not gospel.
type Weights struct {
	// WordMatchValue is awarded per token present in both file and book.
	WordMatchValue int
	// UnmatchedPenalty is charged per file token absent from the book.
	UnmatchedPenalty int
	// SecondaryPenalty is an additional, independently computed charge per
	// unmatched file token, further discouraging partial matches.
	SecondaryPenalty int
	// RatioBonusThreshold is the matched/total ratio at which the match-ratio
	// bonus kicks in.
	RatioBonusThreshold float64
	// SegmentedFullBonus applies when an author-like filename prefix fully
	// matches the book's author and the title-like suffix fully matches the
	// title.
	SegmentedFullBonus int
	// SegmentedPartialBonus applies when exactly one of the two segments
	// fully matches.
	SegmentedPartialBonus int
}

// DefaultWeights returns the historical scoring constants.
func DefaultWeights() Weights {
	return Weights{
		WordMatchValue:        20,
		UnmatchedPenalty:      10,
		SecondaryPenalty:      5,
		RatioBonusThreshold:   0.8,
		SegmentedFullBonus:    25,
		SegmentedPartialBonus: 15,
	}
}

// WeightsFromConfig maps matching configuration onto scorer weights.
func WeightsFromConfig(cfg config.Matching) Weights {
	return Weights{
		WordMatchValue:        cfg.WordMatchValue,
		UnmatchedPenalty:      cfg.UnmatchedPenalty,
		SecondaryPenalty:      cfg.SecondaryPenalty,
		RatioBonusThreshold:   cfg.RatioBonusThreshold,
		SegmentedFullBonus:    cfg.SegmentedFullBonus,
		SegmentedPartialBonus: cfg.SegmentedPartialBonus,
	}
}

func (w Weights) normalized() Weights {
	if w.WordMatchValue <= 0 {
		w.WordMatchValue = 20
	}
	if w.RatioBonusThreshold <= 0 || w.RatioBonusThreshold > 1 {
		w.RatioBonusThreshold = 0.8
	}
	return w
}
