package sentiment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrReviewNotFound is returned when a review id does not exist.
var ErrReviewNotFound = errors.New("sentiment: review not found")

// ReviewStore wraps SQLite access to the review corpus. The engine reads
// review text and ratings and writes back sentiment annotations; everything
// else belongs to the catalog subsystem.
type ReviewStore struct {
	db *gorm.DB
}

// NewReviewStore opens (creating if needed) the SQLite database at dbPath
// and migrates the review table.
func NewReviewStore(dbPath string) (*ReviewStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&Review{}); err != nil {
		return nil, fmt.Errorf("auto migrate reviews: %w", err)
	}
	return &ReviewStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *ReviewStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// CreateReview inserts a review. Sentiment fields are left untouched; the
// review-creation workflow is expected to call the analysis service
// explicitly afterwards.
func (s *ReviewStore) CreateReview(ctx context.Context, review *Review) error {
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// GetReview fetches one review by id.
func (s *ReviewStore) GetReview(ctx context.Context, id uint) (*Review, error) {
	var review Review
	if err := s.db.WithContext(ctx).First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &review, nil
}

// ListByProduct returns all reviews for a product.
func (s *ReviewStore) ListByProduct(ctx context.Context, productID uint) ([]Review, error) {
	var reviews []Review
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews by product: %w", err)
	}
	return reviews, nil
}

// ListAll returns the entire review corpus, ordered by creation time.
func (s *ReviewStore) ListAll(ctx context.Context) ([]Review, error) {
	var reviews []Review
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// ListLabeled returns reviews carrying a direct sentiment label and a
// rating, the population training examples are built from.
func (s *ReviewStore) ListLabeled(ctx context.Context) ([]Review, error) {
	var reviews []Review
	if err := s.db.WithContext(ctx).
		Where("sentiment IS NOT NULL AND sentiment <> ''").
		Order("id ASC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list labeled reviews: %w", err)
	}
	return reviews, nil
}

// ListUnanalyzed returns up to limit reviews without a sentiment label,
// oldest first. limit <= 0 returns all of them.
func (s *ReviewStore) ListUnanalyzed(ctx context.Context, limit int) ([]Review, error) {
	query := s.db.WithContext(ctx).
		Where("sentiment IS NULL OR sentiment = ''").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var reviews []Review
	if err := query.Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list unanalyzed reviews: %w", err)
	}
	return reviews, nil
}

// ListCreatedSince returns reviews created at or after the cutoff,
// optionally restricted to one product (productID 0 means all products).
func (s *ReviewStore) ListCreatedSince(ctx context.Context, cutoff time.Time, productID uint) ([]Review, error) {
	query := s.db.WithContext(ctx).Where("created_at >= ?", cutoff)
	if productID != 0 {
		query = query.Where("product_id = ?", productID)
	}
	var reviews []Review
	if err := query.Order("created_at ASC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("list reviews since: %w", err)
	}
	return reviews, nil
}

// ProductIDs returns up to limit distinct product ids present in the review
// corpus, in ascending order.
func (s *ReviewStore) ProductIDs(ctx context.Context, limit int) ([]uint, error) {
	query := s.db.WithContext(ctx).Model(&Review{}).
		Distinct("product_id").
		Order("product_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []uint
	if err := query.Pluck("product_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	return ids, nil
}

// SentimentUpdate carries one review's complete sentiment annotation.
type SentimentUpdate struct {
	ReviewID   uint
	Prediction Prediction
	AnalyzedAt time.Time
}

// ApplySentiment writes a review's sentiment label, confidence, score map,
// and analysis timestamp as a single UPDATE so readers never observe a
// partially annotated review.
func (s *ReviewStore) ApplySentiment(ctx context.Context, update SentimentUpdate) error {
	return s.applySentiment(s.db.WithContext(ctx), update)
}

// ApplySentimentBatch applies a chunk of sentiment updates inside one
// transaction: either the whole chunk lands or none of it does.
func (s *ReviewStore) ApplySentimentBatch(ctx context.Context, updates []SentimentUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := s.applySentiment(tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ReviewStore) applySentiment(tx *gorm.DB, update SentimentUpdate) error {
	scores := datatypes.JSONMap{}
	for cls, p := range update.Prediction.Probabilities {
		scores[string(cls)] = p
	}
	label := string(update.Prediction.Sentiment)
	confidence := update.Prediction.Confidence
	analyzedAt := update.AnalyzedAt
	res := tx.Model(&Review{}).Where("id = ?", update.ReviewID).Updates(map[string]any{
		"sentiment":             label,
		"sentiment_confidence":  confidence,
		"sentiment_scores":      scores,
		"sentiment_analyzed_at": analyzedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("apply sentiment to review %d: %w", update.ReviewID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("apply sentiment to review %d: %w", update.ReviewID, ErrReviewNotFound)
	}
	return nil
}

// ClearSentiment removes a review's sentiment annotation. Used by forced
// re-analysis.
func (s *ReviewStore) ClearSentiment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&Review{}).Where("id = ?", id).Updates(map[string]any{
		"sentiment":             nil,
		"sentiment_confidence":  nil,
		"sentiment_scores":      nil,
		"sentiment_analyzed_at": nil,
	})
	if res.Error != nil {
		return fmt.Errorf("clear sentiment on review %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("clear sentiment on review %d: %w", id, ErrReviewNotFound)
	}
	return nil
}
