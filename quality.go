package sentiment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Default audit parameters.
const (
	defaultMinTokenLength     = 2
	defaultShortTextThreshold = 3
)

// QualityReport is a read-only snapshot of training-data health. It never
// reflects mutations; the auditor only reads the corpus.
type QualityReport struct {
	TotalReviews int
	Labeled      int
	Unlabeled    int

	EmptyTextRatio float64

	LabelCounts    map[Class]int
	ImbalanceRatio float64

	DuplicateRatio float64

	AverageTokens  float64
	ShortTextRatio float64
}

// Adequate applies a coarse readiness heuristic: enough labeled examples,
// no class starved relative to the largest, and mostly unique texts.
func (r *QualityReport) Adequate(minLabeled int) bool {
	return r.Labeled >= minLabeled &&
		r.ImbalanceRatio < 10 &&
		r.DuplicateRatio < 0.5
}

// Auditor computes corpus-level statistics used to judge whether the review
// corpus can support training.
type Auditor struct {
	store *ReviewStore
	log   *zap.Logger
}

// NewAuditor wires an auditor over the review store.
func NewAuditor(store *ReviewStore, log *zap.Logger) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{store: store, log: log}
}

// Audit scans the whole corpus. minTokenLength sets the shortest token that
// counts toward token statistics; shortTextThreshold is the token count
// below which a text is flagged short. Zero or negative parameters take the
// defaults.
func (a *Auditor) Audit(ctx context.Context, minTokenLength, shortTextThreshold int) (*QualityReport, error) {
	if minTokenLength <= 0 {
		minTokenLength = defaultMinTokenLength
	}
	if shortTextThreshold <= 0 {
		shortTextThreshold = defaultShortTextThreshold
	}

	reviews, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("quality audit: %w", err)
	}

	report := &QualityReport{
		TotalReviews: len(reviews),
		LabelCounts:  map[Class]int{Positive: 0, Negative: 0, Neutral: 0},
	}
	if len(reviews) == 0 {
		return report, nil
	}

	seen := make(map[string]int)
	var tokenCounts []float64
	empty, short, nonEmpty := 0, 0, 0
	for i := range reviews {
		if cls, ok := reviews[i].DirectSentiment(); ok {
			report.Labeled++
			report.LabelCounts[cls]++
		}

		text := reviews[i].CombinedText()
		if text == "" {
			empty++
			continue
		}
		nonEmpty++
		seen[strings.ToLower(text)]++

		tokens := 0
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			if len([]rune(tok)) >= minTokenLength {
				tokens++
			}
		}
		tokenCounts = append(tokenCounts, float64(tokens))
		if tokens < shortTextThreshold {
			short++
		}
	}
	report.Unlabeled = report.TotalReviews - report.Labeled
	report.EmptyTextRatio = float64(empty) / float64(report.TotalReviews)

	if nonEmpty > 0 {
		duplicates := 0
		for _, n := range seen {
			if n > 1 {
				duplicates += n - 1
			}
		}
		report.DuplicateRatio = float64(duplicates) / float64(nonEmpty)
		report.ShortTextRatio = float64(short) / float64(nonEmpty)
		report.AverageTokens = stat.Mean(tokenCounts, nil)
	}

	report.ImbalanceRatio = imbalanceRatio(report.LabelCounts)
	a.log.Info("completed data quality audit",
		zap.Int("total", report.TotalReviews),
		zap.Int("labeled", report.Labeled),
		zap.Float64("duplicate_ratio", report.DuplicateRatio))
	return report, nil
}

// imbalanceRatio is max class count over min nonzero class count among
// observed labels. Zero when fewer than two classes have examples.
func imbalanceRatio(counts map[Class]int) float64 {
	min, max, present := 0, 0, 0
	for _, n := range counts {
		if n == 0 {
			continue
		}
		present++
		if min == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if present < 2 {
		return 0
	}
	return float64(max) / float64(min)
}
