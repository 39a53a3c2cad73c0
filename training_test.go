package sentiment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStratifiedIndexSplit(t *testing.T) {
	labels := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		labels = append(labels, "0")
	}
	for i := 0; i < 10; i++ {
		labels = append(labels, "2")
	}

	rest, test := stratifiedIndexSplit(labels, 0.2, splitSeed)
	require.Len(t, test, 4)
	require.Len(t, rest, 16)

	// Two test examples per class.
	perClass := map[string]int{}
	for _, idx := range test {
		perClass[labels[idx]]++
	}
	require.Equal(t, map[string]int{"0": 2, "2": 2}, perClass)

	// No index appears twice across the partitions.
	seen := map[int]bool{}
	for _, idx := range append(append([]int{}, rest...), test...) {
		require.False(t, seen[idx], "index %d assigned twice", idx)
		seen[idx] = true
	}
	require.Len(t, seen, 20)
}

func TestStratifiedIndexSplitDeterministic(t *testing.T) {
	labels := []string{"0", "0", "0", "1", "1", "1", "2", "2", "2", "2"}
	rest1, test1 := stratifiedIndexSplit(labels, 0.3, splitSeed)
	rest2, test2 := stratifiedIndexSplit(labels, 0.3, splitSeed)
	require.True(t, reflect.DeepEqual(rest1, rest2))
	require.True(t, reflect.DeepEqual(test1, test2))
}

func TestStratifiedIndexSplitTinyClass(t *testing.T) {
	// A two-member class still contributes one test example when the
	// fraction rounds down to zero.
	labels := []string{"0", "0", "2", "2", "2", "2", "2", "2", "2", "2"}
	_, test := stratifiedIndexSplit(labels, 0.1, splitSeed)
	perClass := map[string]int{}
	for _, idx := range test {
		perClass[labels[idx]]++
	}
	require.Equal(t, 1, perClass["0"])
}

func TestSplitSmallCorpusSkipsPartitioning(t *testing.T) {
	trainer := NewTrainer(nil, nil, nil)
	texts := []string{"good", "bad", "meh"}
	labels := []int{2, 0, 1}

	splits := trainer.split(texts, labels, DefaultPrepareOptions())
	require.Equal(t, texts, splits.TrainTexts)
	require.Equal(t, texts, splits.TestTexts)
	require.Empty(t, splits.ValTexts)
	require.NotEmpty(t, splits.Metadata.Note)
	require.False(t, splits.Metadata.UseValidation)
}

func TestSplitThreeWay(t *testing.T) {
	trainer := NewTrainer(nil, nil, nil)
	texts := make([]string, 0, 40)
	labels := make([]int, 0, 40)
	for i := 0; i < 20; i++ {
		texts = append(texts, fmt.Sprintf("pos %d", i))
		labels = append(labels, 2)
		texts = append(texts, fmt.Sprintf("neg %d", i))
		labels = append(labels, 0)
	}

	splits := trainer.split(texts, labels, DefaultPrepareOptions())
	total := len(splits.TrainTexts) + len(splits.ValTexts) + len(splits.TestTexts)
	require.Equal(t, 40, total)
	require.Len(t, splits.TestTexts, 6)
	require.NotEmpty(t, splits.ValTexts)
	require.Greater(t, len(splits.TrainTexts), len(splits.TestTexts))
	require.Equal(t, 40, splits.Metadata.TotalSamples)
}

func TestBalanceOversample(t *testing.T) {
	trainer := NewTrainer(nil, nil, nil)
	splits := &DataSplits{
		TrainTexts:  []string{"a", "b", "c", "d", "e", "f"},
		TrainLabels: []int{0, 0, 0, 0, 2, 2},
	}
	require.NoError(t, trainer.balance(splits, BalanceOversample))

	dist := distribution(splits.TrainLabels)
	require.Equal(t, 4, dist[0])
	require.Equal(t, 4, dist[2])
}

func TestBalanceUndersample(t *testing.T) {
	trainer := NewTrainer(nil, nil, nil)
	splits := &DataSplits{
		TrainTexts:  []string{"a", "b", "c", "d", "e", "f"},
		TrainLabels: []int{0, 0, 0, 0, 2, 2},
	}
	require.NoError(t, trainer.balance(splits, BalanceUndersample))

	dist := distribution(splits.TrainLabels)
	require.Equal(t, 2, dist[0])
	require.Equal(t, 2, dist[2])
}

func TestBalanceClassWeights(t *testing.T) {
	trainer := NewTrainer(nil, nil, nil)
	splits := &DataSplits{
		TrainTexts:  []string{"a", "b", "c", "d", "e", "f"},
		TrainLabels: []int{0, 0, 0, 0, 2, 2},
	}
	require.NoError(t, trainer.balance(splits, BalanceClassWeights))

	// Partitions stay untouched; only the weights are produced.
	require.Len(t, splits.TrainLabels, 6)
	require.InDelta(t, 6.0/(2*4), splits.ClassWeights[0], 1e-9)
	require.InDelta(t, 6.0/(2*2), splits.ClassWeights[2], 1e-9)
}

func TestBalanceUnknownMethodIsSoft(t *testing.T) {
	trainer := NewTrainer(nil, nil, nil)
	texts := make([]string, 0, 20)
	labels := make([]int, 0, 20)
	for i := 0; i < 10; i++ {
		texts = append(texts, fmt.Sprintf("pos %d", i))
		labels = append(labels, 2)
		texts = append(texts, fmt.Sprintf("neg %d", i))
		labels = append(labels, 0)
	}

	// An unknown strategy must log and proceed unbalanced, not fail.
	splits := trainer.split(texts, labels, PrepareOptions{Balance: true, BalanceMethod: "smote"})
	require.False(t, splits.Metadata.Balanced)
	require.NotEmpty(t, splits.TrainTexts)
}

func TestTrainInsufficientData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedLabeledReview(t, store, "great phone really love it", Positive, 5)
	seedLabeledReview(t, store, "awful phone hate it", Negative, 1)

	models := NewModelStore(t.TempDir(), nil, nil)
	trainer := NewTrainer(store, models, nil)
	opts := DefaultTrainOptions(English)
	opts.MinReviews = 50

	result, err := trainer.Train(ctx, opts)
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, 2, insufficient.Labeled)
	require.Equal(t, 50, insufficient.Required)
	require.True(t, result.Insufficient)

	// A refused run must not write any artifact.
	_, _, found, err := models.Load(English)
	require.NoError(t, err)
	require.False(t, found)
}

func TestTrainForceOverridesMinimum(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedTrainingCorpus(t, store, 4)

	modelDir := t.TempDir()
	models := NewModelStore(modelDir, nil, nil)
	trainer := NewTrainer(store, models, nil)

	opts := DefaultTrainOptions(English)
	opts.MinReviews = 500
	opts.Force = true

	result, err := trainer.Train(ctx, opts)
	require.NoError(t, err)
	require.False(t, result.Insufficient)

	_, _, found, err := models.Load(English)
	require.NoError(t, err)
	require.True(t, found)
}

func TestTrainWithValidationEndToEnd(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedTrainingCorpus(t, store, 20)

	modelDir := t.TempDir()
	models := NewModelStore(modelDir, nil, nil)
	trainer := NewTrainer(store, models, nil)

	opts := DefaultTrainOptions(English)
	result, err := trainer.Train(ctx, opts)
	require.NoError(t, err)
	require.False(t, result.Insufficient)
	require.Equal(t, "naive_bayes", result.Algorithm)
	require.Equal(t, 60, result.LabeledCount)
	require.NotNil(t, result.Validation)
	require.Greater(t, result.Validation.Accuracy, 0.5)
	// The reported accuracy is the validation partition's, not a second
	// holdout carved out of the training set.
	require.InDelta(t, result.Validation.Accuracy, result.Accuracy, 1e-12)
	require.NotEmpty(t, result.Report.PerClass)

	// A fresh router must pick the persisted artifacts up from disk.
	router := NewRouter(models, nil)
	p := router.DetectAndPredict("amazing excellent camera")
	require.Equal(t, Positive, p.Sentiment)
	require.Equal(t, "naive_bayes", p.Algorithm)
}

func TestTrainWithoutValidationScoresTestPartition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedTrainingCorpus(t, store, 20)

	models := NewModelStore(t.TempDir(), nil, nil)
	trainer := NewTrainer(store, models, nil)

	opts := DefaultTrainOptions(English)
	opts.UseValidation = false

	result, err := trainer.Train(ctx, opts)
	require.NoError(t, err)
	require.Nil(t, result.Validation)
	require.Greater(t, result.Accuracy, 0.5)
	require.NotEmpty(t, result.Report.PerClass)
}

func seedLabeledReview(t *testing.T, store *ReviewStore, text string, cls Class, rating int) {
	t.Helper()
	review := analyzedReview(Review{ProductID: 1, Rating: rating, Comment: text}, cls, 0.9)
	review.CreatedAt = time.Now().UTC()
	require.NoError(t, store.CreateReview(context.Background(), &review))
}

// seedTrainingCorpus inserts n labeled reviews per class with clearly
// separable English vocabulary.
func seedTrainingCorpus(t *testing.T, store *ReviewStore, n int) {
	t.Helper()
	positive := []string{
		"amazing excellent camera",
		"amazing wonderful screen",
		"excellent wonderful battery",
	}
	negative := []string{
		"terrible awful camera",
		"terrible broken screen",
		"awful broken battery",
	}
	neutral := []string{
		"mediocre ordinary camera",
		"mediocre unremarkable screen",
		"ordinary unremarkable battery",
	}
	for i := 0; i < n; i++ {
		seedLabeledReview(t, store, positive[i%len(positive)], Positive, 5)
		seedLabeledReview(t, store, negative[i%len(negative)], Negative, 1)
		seedLabeledReview(t, store, neutral[i%len(neutral)], Neutral, 3)
	}
}
