package sentiment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// coverageThreshold is the analyzed fraction above which a summary is built
// from direct classifier labels. Below it, rating-derived sentiment stands
// in for the whole population so early products are not dominated by a
// handful of analyzed reviews.
const coverageThreshold = 0.5

// alertScanLimit bounds how many products one alert sweep inspects.
const alertScanLimit = 200

// alertFallbackSize is how many worst products are surfaced when no product
// crosses the alert threshold.
const alertFallbackSize = 5

// Basis values reported by summaries.
const (
	BasisDirect    = "direct"
	BasisEffective = "effective"
)

// Distribution is a per-class count breakdown with percentages over its
// population base.
type Distribution struct {
	Counts      map[Class]int
	Percentages map[Class]float64
}

// Summary is the sentiment distribution over one product's reviews, or over
// the whole corpus when ProductID is zero. Direct covers only analyzed
// reviews (percentages over the analyzed subset); Effective backfills
// unanalyzed reviews from ratings (percentages over all reviews). Counts
// and Percentages alias whichever of the two the coverage rule selected.
type Summary struct {
	ProductID       uint
	TotalReviews    int
	AnalyzedReviews int
	// Coverage is the analyzed share of TotalReviews as a fraction in
	// [0, 1]; multiply by 100 for display.
	Coverage float64
	Basis    string

	Direct    Distribution
	Effective Distribution

	Counts      map[Class]int
	Percentages map[Class]float64
	Dominant    Class

	AverageRating     float64
	AverageConfidence float64
}

// NegativePercent is the share of negative reviews in the summary.
func (s *Summary) NegativePercent() float64 {
	return s.Percentages[Negative]
}

// TrendMode selects which reviews a trend series counts.
type TrendMode string

const (
	// TrendDirect buckets only analyzed reviews by their classifier label.
	TrendDirect TrendMode = "direct"
	// TrendEffective buckets every review by its effective sentiment.
	TrendEffective TrendMode = "effective"
)

// TrendPoint is one day's sentiment distribution. Days with no reviews are
// not represented at all; consumers must not assume consecutive dates.
type TrendPoint struct {
	Date        string
	Total       int
	Counts      map[Class]int
	Percentages map[Class]float64
}

// Alert flags a product whose negative share crossed the alert threshold.
// Fallback alerts are the worst offenders surfaced when nothing crossed it.
type Alert struct {
	ProductID       uint
	TotalReviews    int
	NegativePercent float64
	Dominant        Class
	Fallback        bool
}

// AlertReport is the result of one alert sweep.
type AlertReport struct {
	Threshold       float64
	ProductsScanned int
	Alerts          []Alert
	Fallback        bool
}

// Engine computes read-side sentiment aggregates over the review corpus.
// Engines are stateless beyond their collaborators and safe for concurrent
// use.
type Engine struct {
	store *ReviewStore
	log   *zap.Logger
	now   func() time.Time
}

// NewEngine wires an aggregation engine over the review store.
func NewEngine(store *ReviewStore, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log, now: time.Now}
}

// Summarize builds the sentiment distribution for one product. A product
// with no reviews yields an all-zero summary with a neutral dominant class.
func (e *Engine) Summarize(ctx context.Context, productID uint) (*Summary, error) {
	reviews, err := e.store.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("summarize product %d: %w", productID, err)
	}
	summary := summarizeReviews(reviews)
	summary.ProductID = productID
	return summary, nil
}

// Overview builds the global sentiment distribution. Unlike the per-product
// summary there is no coverage fallback: counts and the dominant class come
// from analyzed reviews only, defaulting to neutral with zeroed counts when
// nothing has been analyzed yet.
func (e *Engine) Overview(ctx context.Context) (*Summary, error) {
	reviews, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("sentiment overview: %w", err)
	}
	summary := summarizeReviews(reviews)
	summary.Basis = BasisDirect
	summary.Counts = summary.Direct.Counts
	summary.Percentages = summary.Direct.Percentages
	if summary.AnalyzedReviews == 0 {
		summary.Dominant = Neutral
	} else {
		summary.Dominant = dominantClass(summary.Direct.Counts)
	}
	return summary, nil
}

// Statistics is the plain count breakdown of analysis progress.
type Statistics struct {
	Total          int
	Analyzed       int
	Unanalyzed     int
	AnalyzedCounts map[Class]int
}

// Stats counts reviews by analysis state, optionally scoped to one product
// (productID 0 covers the corpus).
func (e *Engine) Stats(ctx context.Context, productID uint) (*Statistics, error) {
	var reviews []Review
	var err error
	if productID == 0 {
		reviews, err = e.store.ListAll(ctx)
	} else {
		reviews, err = e.store.ListByProduct(ctx, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("sentiment statistics: %w", err)
	}

	stats := &Statistics{
		Total:          len(reviews),
		AnalyzedCounts: map[Class]int{Positive: 0, Negative: 0, Neutral: 0},
	}
	for i := range reviews {
		if cls, ok := reviews[i].DirectSentiment(); ok {
			stats.Analyzed++
			stats.AnalyzedCounts[cls]++
		}
	}
	stats.Unanalyzed = stats.Total - stats.Analyzed
	return stats, nil
}

// Trend buckets the last days of reviews by calendar day (UTC) and returns
// one point per day that actually has matching reviews, oldest first. Days
// without reviews are omitted, not zero-filled. productID 0 covers the
// whole corpus. Direct mode counts only analyzed reviews by classifier
// label; effective mode counts every review by effective sentiment. An
// empty mode means direct.
func (e *Engine) Trend(ctx context.Context, days int, productID uint, mode TrendMode) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	if mode == "" {
		mode = TrendDirect
	}
	cutoff := e.now().UTC().AddDate(0, 0, -days)
	reviews, err := e.store.ListCreatedSince(ctx, cutoff, productID)
	if err != nil {
		return nil, fmt.Errorf("sentiment trend: %w", err)
	}

	byDay := make(map[string]map[Class]int)
	for i := range reviews {
		var cls Class
		if mode == TrendDirect {
			direct, ok := reviews[i].DirectSentiment()
			if !ok {
				continue
			}
			cls = direct
		} else {
			cls = reviews[i].EffectiveSentiment()
		}
		day := reviews[i].CreatedAt.UTC().Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = map[Class]int{Positive: 0, Negative: 0, Neutral: 0}
		}
		byDay[day][cls]++
	}

	dates := make([]string, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]TrendPoint, 0, len(dates))
	for _, date := range dates {
		counts := byDay[date]
		total := counts[Positive] + counts[Negative] + counts[Neutral]
		points = append(points, TrendPoint{
			Date:        date,
			Total:       total,
			Counts:      counts,
			Percentages: percentages(counts, total),
		})
	}
	return points, nil
}

// Alerts sweeps up to 200 products and flags those whose negative share
// meets the threshold (a percentage, 0-100). When nothing crosses it, the
// five worst products by negative share are returned instead, marked as
// fallback results.
func (e *Engine) Alerts(ctx context.Context, threshold float64) (*AlertReport, error) {
	ids, err := e.store.ProductIDs(ctx, alertScanLimit)
	if err != nil {
		return nil, fmt.Errorf("sentiment alerts: %w", err)
	}

	report := &AlertReport{Threshold: threshold, ProductsScanned: len(ids)}
	var all []Alert
	for _, id := range ids {
		summary, err := e.Summarize(ctx, id)
		if err != nil {
			return nil, err
		}
		if summary.TotalReviews == 0 {
			continue
		}
		all = append(all, Alert{
			ProductID:       id,
			TotalReviews:    summary.TotalReviews,
			NegativePercent: summary.NegativePercent(),
			Dominant:        summary.Dominant,
		})
	}

	for _, a := range all {
		if a.NegativePercent >= threshold {
			report.Alerts = append(report.Alerts, a)
		}
	}
	if len(report.Alerts) > 0 {
		sort.Slice(report.Alerts, func(i, j int) bool {
			return report.Alerts[i].NegativePercent > report.Alerts[j].NegativePercent
		})
		return report, nil
	}

	// Nothing crossed the threshold. Surface the worst products anyway so
	// the dashboard is never empty, clearly flagged as below-threshold.
	sort.Slice(all, func(i, j int) bool {
		return all[i].NegativePercent > all[j].NegativePercent
	})
	if len(all) > alertFallbackSize {
		all = all[:alertFallbackSize]
	}
	for i := range all {
		all[i].Fallback = true
	}
	report.Alerts = all
	report.Fallback = true
	return report, nil
}

// summarizeReviews is the shared distribution core. Both distributions are
// always computed; the coverage rule only decides which one the dominant
// class and the operative Counts/Percentages come from.
func summarizeReviews(reviews []Review) *Summary {
	summary := &Summary{
		Direct:    newDistribution(),
		Effective: newDistribution(),
		Dominant:  Neutral,
	}
	summary.Counts = summary.Effective.Counts
	summary.Percentages = summary.Effective.Percentages
	summary.TotalReviews = len(reviews)
	if len(reviews) == 0 {
		return summary
	}

	ratings := make([]float64, 0, len(reviews))
	var confidences []float64
	for i := range reviews {
		ratings = append(ratings, float64(reviews[i].Rating))
		summary.Effective.Counts[reviews[i].EffectiveSentiment()]++
		if cls, ok := reviews[i].DirectSentiment(); ok {
			summary.AnalyzedReviews++
			summary.Direct.Counts[cls]++
			if reviews[i].SentimentConfidence != nil {
				confidences = append(confidences, *reviews[i].SentimentConfidence)
			}
		}
	}
	summary.Coverage = float64(summary.AnalyzedReviews) / float64(summary.TotalReviews)
	summary.AverageRating = stat.Mean(ratings, nil)
	if len(confidences) > 0 {
		summary.AverageConfidence = stat.Mean(confidences, nil)
	}
	summary.Direct.Percentages = percentages(summary.Direct.Counts, summary.AnalyzedReviews)
	summary.Effective.Percentages = percentages(summary.Effective.Counts, summary.TotalReviews)

	if summary.Coverage >= coverageThreshold {
		summary.Basis = BasisDirect
		summary.Counts = summary.Direct.Counts
		summary.Percentages = summary.Direct.Percentages
	} else {
		summary.Basis = BasisEffective
		summary.Counts = summary.Effective.Counts
		summary.Percentages = summary.Effective.Percentages
	}
	summary.Dominant = dominantClass(summary.Counts)
	return summary
}

func newDistribution() Distribution {
	return Distribution{
		Counts:      map[Class]int{Positive: 0, Negative: 0, Neutral: 0},
		Percentages: map[Class]float64{Positive: 0, Negative: 0, Neutral: 0},
	}
}

// dominantClass picks the most frequent class, breaking ties in canonical
// order (positive, then negative, then neutral).
func dominantClass(counts map[Class]int) Class {
	best := Neutral
	bestCount := -1
	for _, cls := range classOrder {
		if counts[cls] > bestCount {
			best = cls
			bestCount = counts[cls]
		}
	}
	return best
}

// percentages converts counts to percentages of base, all zeros when base
// is zero.
func percentages(counts map[Class]int, base int) map[Class]float64 {
	out := map[Class]float64{Positive: 0, Negative: 0, Neutral: 0}
	if base == 0 {
		return out
	}
	for cls, n := range counts {
		out[cls] = 100 * float64(n) / float64(base)
	}
	return out
}
