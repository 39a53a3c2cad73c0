package sentiment

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Review is a customer review as stored by the catalog subsystem. The engine
// treats everything except the sentiment annotation fields as read-only
// input; the sentiment fields are written exclusively by the classifier and
// are either all set or all unset.
type Review struct {
	ID               uint   `gorm:"primaryKey"`
	ProductID        uint   `gorm:"index;not null"`
	UserID           uint   `gorm:"index"`
	Rating           int    `gorm:"not null"`
	Title            string `gorm:"size:200"`
	Comment          string `gorm:"not null"`
	VerifiedPurchase bool

	Sentiment           *string `gorm:"size:10;index"`
	SentimentConfidence *float64
	SentimentScores     datatypes.JSONMap
	SentimentAnalyzedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CombinedText joins title and comment the way the classifier consumes them.
func (r *Review) CombinedText() string {
	return strings.TrimSpace(strings.TrimSpace(r.Title) + " " + strings.TrimSpace(r.Comment))
}

// Analyzed reports whether the review carries a direct sentiment label.
func (r *Review) Analyzed() bool {
	return r.Sentiment != nil && *r.Sentiment != ""
}

// DirectSentiment returns the stored sentiment label, or ok=false when the
// review has not been analyzed.
func (r *Review) DirectSentiment() (Class, bool) {
	if !r.Analyzed() {
		return Neutral, false
	}
	return Class(*r.Sentiment), true
}

// EffectiveSentiment is the review's sentiment when present, else a proxy
// derived from its rating: 4-5 positive, 3 neutral, 1-2 negative.
func (r *Review) EffectiveSentiment() Class {
	if c, ok := r.DirectSentiment(); ok {
		return c
	}
	switch {
	case r.Rating >= 4:
		return Positive
	case r.Rating == 3:
		return Neutral
	default:
		return Negative
	}
}
