package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultBatchSize bounds the blast radius of a failed chunk during batch
// re-analysis.
const defaultBatchSize = 100

// Service is the entry point the review workflow calls into: classify text,
// annotate stored reviews, and re-analyze the backlog. Classification is
// advisory, so single-item failures degrade to neutral rather than
// propagate.
type Service struct {
	store  *ReviewStore
	router *Router
	log    *zap.Logger
	now    func() time.Time
}

// NewService wires the service from its collaborators.
func NewService(store *ReviewStore, router *Router, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		router: router,
		log:    log,
		now:    time.Now,
	}
}

// AnalyzeText classifies a free-standing text, routing by detected
// language.
func (s *Service) AnalyzeText(text string) Prediction {
	return s.router.DetectAndPredict(text)
}

// AnalyzeReviewWithTitle classifies the combined title and comment of a
// review, the same text shape training uses.
func (s *Service) AnalyzeReviewWithTitle(title, comment string) Prediction {
	combined := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(comment))
	return s.router.DetectAndPredict(combined)
}

// CreateAndAnalyze inserts a review and immediately classifies it. This is
// the explicit creation-time path the review workflow calls instead of a
// hidden post-save hook; a classification failure leaves the review stored
// but unannotated.
func (s *Service) CreateAndAnalyze(ctx context.Context, review *Review) (Prediction, error) {
	if err := s.store.CreateReview(ctx, review); err != nil {
		return Prediction{}, err
	}
	return s.UpdateReviewSentiment(ctx, review.ID, false)
}

// UpdateReviewSentiment classifies a stored review and writes the
// annotation back as a single update. A review that already carries
// sentiment is skipped unless force is set, keeping the operation
// idempotent for creation-time triggers.
func (s *Service) UpdateReviewSentiment(ctx context.Context, id uint, force bool) (Prediction, error) {
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return Prediction{}, err
	}
	if review.Analyzed() && !force {
		return s.storedPrediction(review), nil
	}

	prediction := s.AnalyzeReviewWithTitle(review.Title, review.Comment)
	update := SentimentUpdate{
		ReviewID:   id,
		Prediction: prediction,
		AnalyzedAt: s.analyzedAt(review),
	}
	if err := s.store.ApplySentiment(ctx, update); err != nil {
		return Prediction{}, fmt.Errorf("persist sentiment: %w", err)
	}
	s.log.Info("updated review sentiment",
		zap.Uint("review_id", id),
		zap.String("sentiment", string(prediction.Sentiment)),
		zap.Float64("confidence", prediction.Confidence))
	return prediction, nil
}

// BatchStats summarizes one batch re-analysis run.
type BatchStats struct {
	Processed int
	Positive  int
	Negative  int
	Neutral   int
	Errors    int
}

// AnalyzeAll classifies every review without a sentiment label, in chunks
// of batchSize, each chunk committed as one transaction. A failing item is
// counted and skipped; a failing chunk commit counts its whole chunk as
// errors. The run itself only fails when the backlog cannot be read.
func (s *Service) AnalyzeAll(ctx context.Context, batchSize int) (BatchStats, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	var stats BatchStats

	reviews, err := s.store.ListUnanalyzed(ctx, 0)
	if err != nil {
		return stats, fmt.Errorf("load unanalyzed reviews: %w", err)
	}
	s.log.Info("starting batch sentiment analysis", zap.Int("reviews", len(reviews)))

	for start := 0; start < len(reviews); start += batchSize {
		end := start + batchSize
		if end > len(reviews) {
			end = len(reviews)
		}
		chunk := reviews[start:end]

		updates := make([]SentimentUpdate, 0, len(chunk))
		results := make([]Class, 0, len(chunk))
		for i := range chunk {
			prediction, err := s.classifyReview(&chunk[i])
			if err != nil {
				stats.Errors++
				s.log.Warn("review classification failed",
					zap.Uint("review_id", chunk[i].ID), zap.Error(err))
				continue
			}
			updates = append(updates, SentimentUpdate{
				ReviewID:   chunk[i].ID,
				Prediction: prediction,
				AnalyzedAt: s.now().UTC(),
			})
			results = append(results, prediction.Sentiment)
		}

		if err := s.store.ApplySentimentBatch(ctx, updates); err != nil {
			stats.Errors += len(updates)
			s.log.Warn("sentiment batch commit failed",
				zap.Int("chunk_size", len(updates)), zap.Error(err))
			continue
		}
		for _, cls := range results {
			stats.Processed++
			switch cls {
			case Positive:
				stats.Positive++
			case Negative:
				stats.Negative++
			default:
				stats.Neutral++
			}
		}
		s.log.Info("processed sentiment chunk",
			zap.Int("done", end), zap.Int("total", len(reviews)))
	}
	return stats, nil
}

// classifyReview guards a single classification so one pathological review
// can never abort a batch run.
func (s *Service) classifyReview(review *Review) (prediction Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classify review %d: %v", review.ID, r)
		}
	}()
	prediction = s.AnalyzeReviewWithTitle(review.Title, review.Comment)
	return prediction, nil
}

// analyzedAt keeps the original analysis timestamp on re-analysis; it is
// only set fresh the first time a review is scored.
func (s *Service) analyzedAt(review *Review) time.Time {
	if review.SentimentAnalyzedAt != nil {
		return *review.SentimentAnalyzedAt
	}
	return s.now().UTC()
}

// storedPrediction reconstructs a Prediction from a review's persisted
// annotation for idempotent skips.
func (s *Service) storedPrediction(review *Review) Prediction {
	p := Prediction{
		Sentiment:     Class(*review.Sentiment),
		Probabilities: map[Class]float64{Negative: 0, Neutral: 0, Positive: 0},
		Language:      DetectLanguage(review.CombinedText()),
	}
	if review.SentimentConfidence != nil {
		p.Confidence = *review.SentimentConfidence
	}
	for key, val := range review.SentimentScores {
		if f, ok := val.(float64); ok {
			p.Probabilities[Class(key)] = f
		}
	}
	return p
}
