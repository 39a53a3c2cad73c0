package sentiment

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// splitSeed pins every random split and resampling decision so repeated
// training runs over the same corpus produce identical partitions.
const splitSeed = 42

// minExamplesForSplit is the corpus size below which stratified splitting
// is pointless; smaller corpora train and "test" on the full set, flagged
// as statistically unreliable.
const minExamplesForSplit = 10

// Balance strategy names accepted by PrepareOptions.BalanceMethod.
const (
	BalanceOversample   = "oversample"
	BalanceUndersample  = "undersample"
	BalanceClassWeights = "class_weights"
)

// InsufficientDataError reports a refused training run with exact counts.
type InsufficientDataError struct {
	Labeled  int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("sentiment: insufficient training data: %d labeled reviews, %d required", e.Labeled, e.Required)
}

// PrepareOptions controls corpus assembly and splitting.
type PrepareOptions struct {
	UseValidation      bool
	ValidationFraction float64
	TestFraction       float64
	Balance            bool
	BalanceMethod      string
}

// DefaultPrepareOptions is the 70/15/15 stratified configuration.
func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		UseValidation:      true,
		ValidationFraction: 0.15,
		TestFraction:       0.15,
	}
}

// SplitMetadata records how a training corpus was assembled, for
// reproducibility.
type SplitMetadata struct {
	TotalSamples         int
	OriginalDistribution map[int]int
	TrainDistribution    map[int]int
	UseValidation        bool
	BalanceMethod        string
	Balanced             bool
	Note                 string
}

// DataSplits is the partitioned training corpus. ClassWeights is populated
// only by the class_weights balance strategy, which leaves the partitions
// themselves untouched.
type DataSplits struct {
	TrainTexts  []string
	TrainLabels []int
	ValTexts    []string
	ValLabels   []int
	TestTexts   []string
	TestLabels  []int

	ClassWeights map[int]float64
	Metadata     SplitMetadata
}

// Trainer assembles labeled examples from the review corpus, splits them,
// optionally balances the training partition, trains per-language models,
// and persists the artifacts. Training runs for the same language must not
// execute concurrently: artifact writes assume a single writer.
type Trainer struct {
	store  *ReviewStore
	models *ModelStore
	log    *zap.Logger
}

// NewTrainer wires a trainer from its collaborators.
func NewTrainer(store *ReviewStore, models *ModelStore, log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{store: store, models: models, log: log}
}

// LabeledExamples builds (text, label) pairs for a language from reviews
// carrying a sentiment label, dropping texts shorter than three characters.
func (t *Trainer) LabeledExamples(ctx context.Context, lang Language) ([]string, []int, error) {
	reviews, err := t.store.ListLabeled(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("collect labeled reviews: %w", err)
	}
	var texts []string
	var labels []int
	for i := range reviews {
		text := reviews[i].CombinedText()
		if len([]rune(text)) < 3 {
			continue
		}
		if DetectLanguage(text) != lang {
			continue
		}
		cls, _ := reviews[i].DirectSentiment()
		texts = append(texts, text)
		labels = append(labels, LabelFor(cls))
	}
	return texts, labels, nil
}

// Prepare splits the labeled corpus for a language. Corpora of at least ten
// examples get a seeded stratified split into train/validation/test (or
// train/test when validation is disabled); smaller corpora are returned
// whole as both train and test with an explanatory note.
func (t *Trainer) Prepare(ctx context.Context, lang Language, opts PrepareOptions) (DataSplits, error) {
	texts, labels, err := t.LabeledExamples(ctx, lang)
	if err != nil {
		return DataSplits{}, err
	}
	return t.split(texts, labels, opts), nil
}

func (t *Trainer) split(texts []string, labels []int, opts PrepareOptions) DataSplits {
	splits := DataSplits{
		Metadata: SplitMetadata{
			TotalSamples:         len(texts),
			OriginalDistribution: distribution(labels),
			UseValidation:        opts.UseValidation,
		},
	}
	if opts.TestFraction <= 0 {
		opts.TestFraction = 0.15
	}
	if opts.ValidationFraction <= 0 {
		opts.ValidationFraction = 0.15
	}

	if len(texts) < minExamplesForSplit {
		splits.TrainTexts, splits.TrainLabels = texts, labels
		splits.TestTexts, splits.TestLabels = texts, labels
		splits.Metadata.UseValidation = false
		splits.Metadata.Note = "dataset too small for splitting; training and test sets are identical"
		splits.Metadata.TrainDistribution = distribution(labels)
		return splits
	}

	strLabels := intLabelsToStrings(labels)
	if opts.UseValidation {
		restIdx, testIdx := stratifiedIndexSplit(strLabels, opts.TestFraction, splitSeed)
		// Second split carves validation out of the remainder, scaled so the
		// final proportions match the requested fractions.
		valFraction := opts.ValidationFraction / (1 - opts.TestFraction)
		restLabels := pickStrings(strLabels, restIdx)
		trainRel, valRel := stratifiedIndexSplit(restLabels, valFraction, splitSeed)
		trainIdx := pickInts(restIdx, trainRel)
		valIdx := pickInts(restIdx, valRel)

		splits.TrainTexts, splits.TrainLabels = subset(texts, labels, trainIdx)
		splits.ValTexts, splits.ValLabels = subset(texts, labels, valIdx)
		splits.TestTexts, splits.TestLabels = subset(texts, labels, testIdx)
	} else {
		trainIdx, testIdx := stratifiedIndexSplit(strLabels, opts.TestFraction+opts.ValidationFraction, splitSeed)
		splits.TrainTexts, splits.TrainLabels = subset(texts, labels, trainIdx)
		splits.TestTexts, splits.TestLabels = subset(texts, labels, testIdx)
	}

	if opts.Balance {
		if err := t.balance(&splits, opts.BalanceMethod); err != nil {
			t.log.Warn("class balancing failed, training unbalanced",
				zap.String("method", opts.BalanceMethod), zap.Error(err))
		} else {
			splits.Metadata.Balanced = opts.BalanceMethod != BalanceClassWeights
			splits.Metadata.BalanceMethod = opts.BalanceMethod
		}
	}
	splits.Metadata.TrainDistribution = distribution(splits.TrainLabels)
	return splits
}

// balance applies the requested strategy to the training partition only.
// Validation and test partitions are never resampled.
func (t *Trainer) balance(splits *DataSplits, method string) error {
	byClass := make(map[int][]int)
	for i, label := range splits.TrainLabels {
		byClass[label] = append(byClass[label], i)
	}
	if len(byClass) < 2 {
		return fmt.Errorf("balancing requires at least two classes, got %d", len(byClass))
	}
	minCount, maxCount := -1, 0
	for _, idx := range byClass {
		if minCount < 0 || len(idx) < minCount {
			minCount = len(idx)
		}
		if len(idx) > maxCount {
			maxCount = len(idx)
		}
	}

	rng := rand.New(rand.NewSource(splitSeed))
	classes := sortedKeys(byClass)

	switch method {
	case BalanceOversample:
		var outIdx []int
		for _, cls := range classes {
			outIdx = append(outIdx, byClass[cls]...)
			for extra := maxCount - len(byClass[cls]); extra > 0; extra-- {
				outIdx = append(outIdx, byClass[cls][rng.Intn(len(byClass[cls]))])
			}
		}
		splits.TrainTexts, splits.TrainLabels = subset(splits.TrainTexts, splits.TrainLabels, outIdx)
	case BalanceUndersample:
		var outIdx []int
		for _, cls := range classes {
			idx := append([]int(nil), byClass[cls]...)
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			outIdx = append(outIdx, idx[:minCount]...)
		}
		sort.Ints(outIdx)
		splits.TrainTexts, splits.TrainLabels = subset(splits.TrainTexts, splits.TrainLabels, outIdx)
	case BalanceClassWeights:
		total := float64(len(splits.TrainLabels))
		k := float64(len(byClass))
		splits.ClassWeights = make(map[int]float64, len(byClass))
		for _, cls := range classes {
			splits.ClassWeights[cls] = total / (k * float64(len(byClass[cls])))
		}
	default:
		return fmt.Errorf("unknown balance method %q", method)
	}
	return nil
}

// TrainOptions parameterizes one training run.
type TrainOptions struct {
	Language           Language
	UseValidation      bool
	ValidationFraction float64
	TestFraction       float64
	Balance            bool
	BalanceMethod      string
	MinReviews         int
	Force              bool
}

// DefaultTrainOptions mirrors the operator defaults: 70/15/15 split, no
// balancing, at least 50 labeled reviews.
func DefaultTrainOptions(lang Language) TrainOptions {
	return TrainOptions{
		Language:           lang,
		UseValidation:      true,
		ValidationFraction: 0.15,
		TestFraction:       0.15,
		MinReviews:         50,
	}
}

// ValidationMetrics summarizes held-out evaluation with support-weighted
// averages across the three classes.
type ValidationMetrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// TrainResult reports one training run. Insufficient is set, and no
// artifact is written, when the labeled corpus is below the configured
// minimum and force was not given. Accuracy and Report come from the
// validation partition, or from the test partition when validation is
// disabled.
type TrainResult struct {
	Algorithm     string
	Language      Language
	Insufficient  bool
	LabeledCount  int
	RequiredCount int

	Accuracy   float64
	Report     Report
	Validation *ValidationMetrics
	Metadata   SplitMetadata
}

// TrainWithValidation runs the full pipeline for one language: assemble,
// split, optionally balance, train, evaluate on the validation partition,
// and persist the artifacts. The model is saved only after training
// succeeds end to end.
func (t *Trainer) TrainWithValidation(ctx context.Context, opts TrainOptions) (*TrainResult, error) {
	result := &TrainResult{
		Algorithm:     "naive_bayes",
		Language:      opts.Language,
		RequiredCount: opts.MinReviews,
	}

	texts, labels, err := t.LabeledExamples(ctx, opts.Language)
	if err != nil {
		return nil, err
	}
	result.LabeledCount = len(texts)
	if len(texts) < opts.MinReviews && !opts.Force {
		result.Insufficient = true
		t.log.Warn("refusing to train on insufficient data",
			zap.String("language", string(opts.Language)),
			zap.Int("labeled", len(texts)),
			zap.Int("required", opts.MinReviews))
		return result, nil
	}

	splits := t.split(texts, labels, PrepareOptions{
		UseValidation:      opts.UseValidation,
		ValidationFraction: opts.ValidationFraction,
		TestFraction:       opts.TestFraction,
		Balance:            opts.Balance,
		BalanceMethod:      opts.BalanceMethod,
	})
	result.Metadata = splits.Metadata

	analyzer := NewAnalyzer(opts.Language, t.models, t.log)
	// The holdout partitions are already carved out above, so the analyzer
	// must not split the training set a second time.
	if _, _, err := analyzer.Train(splits.TrainTexts, splits.TrainLabels, 0); err != nil {
		return nil, fmt.Errorf("train %s model: %w", opts.Language, err)
	}

	evalTexts, evalLabels := splits.ValTexts, splits.ValLabels
	if len(evalTexts) == 0 {
		evalTexts, evalLabels = splits.TestTexts, splits.TestLabels
	}
	if len(evalTexts) > 0 {
		metrics, report := t.validate(analyzer, evalTexts, evalLabels)
		result.Accuracy = metrics.Accuracy
		result.Report = report
		if len(splits.ValTexts) > 0 {
			result.Validation = metrics
		}
	}

	if err := analyzer.Save(); err != nil {
		return nil, fmt.Errorf("persist %s model: %w", opts.Language, err)
	}
	return result, nil
}

// Train is the operator entrypoint: it refuses with an InsufficientDataError
// result unless the labeled corpus meets the minimum or force is set, and
// otherwise behaves as TrainWithValidation.
func (t *Trainer) Train(ctx context.Context, opts TrainOptions) (*TrainResult, error) {
	result, err := t.TrainWithValidation(ctx, opts)
	if err != nil {
		return nil, err
	}
	if result.Insufficient {
		return result, &InsufficientDataError{Labeled: result.LabeledCount, Required: result.RequiredCount}
	}
	return result, nil
}

// TrainBothLanguages trains and persists models for every supported
// language in one invocation, returning held-out accuracy per language.
func (t *Trainer) TrainBothLanguages(ctx context.Context, base TrainOptions) (map[Language]*TrainResult, error) {
	results := make(map[Language]*TrainResult, len(SupportedLanguages()))
	for _, lang := range SupportedLanguages() {
		opts := base
		opts.Language = lang
		result, err := t.TrainWithValidation(ctx, opts)
		if err != nil {
			return results, fmt.Errorf("train %s: %w", lang, err)
		}
		results[lang] = result
	}
	return results, nil
}

// validate scores a held-out partition and aggregates support-weighted
// metrics from the per-class report.
func (t *Trainer) validate(analyzer *Analyzer, texts []string, labels []int) (*ValidationMetrics, Report) {
	predicted := make([]Class, len(texts))
	truth := make([]Class, len(texts))
	numeric := []string{"0", "1", "2"}
	for i, text := range texts {
		predicted[i] = analyzer.Predict(text).Sentiment
		truth[i] = classForLabels(numeric, fmt.Sprintf("%d", labels[i]))
	}
	report := evaluate(predicted, truth)

	metrics := &ValidationMetrics{Accuracy: report.Accuracy}
	total := 0
	for _, m := range report.PerClass {
		total += m.Support
	}
	if total == 0 {
		return metrics, report
	}
	for _, m := range report.PerClass {
		w := float64(m.Support) / float64(total)
		metrics.Precision += w * m.Precision
		metrics.Recall += w * m.Recall
		metrics.F1 += w * m.F1
	}
	return metrics, report
}

// stratifiedIndexSplit partitions indices into rest/test preserving class
// proportions. Groups are processed in sorted label order and shuffled with
// the seeded generator, so the partition is deterministic for a fixed
// corpus and seed.
func stratifiedIndexSplit(labels []string, testFraction float64, seed int64) (rest, test []int) {
	byLabel := make(map[string][]int)
	for i, label := range labels {
		byLabel[label] = append(byLabel[label], i)
	}
	keys := make([]string, 0, len(byLabel))
	for k := range byLabel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rng := rand.New(rand.NewSource(seed))
	for _, key := range keys {
		idx := append([]int(nil), byLabel[key]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		n := int(testFraction * float64(len(idx)))
		if n == 0 && len(idx) > 1 && testFraction > 0 {
			n = 1
		}
		test = append(test, idx[:n]...)
		rest = append(rest, idx[n:]...)
	}
	sort.Ints(rest)
	sort.Ints(test)
	return rest, test
}

func subset(texts []string, labels []int, idx []int) ([]string, []int) {
	outTexts := make([]string, len(idx))
	outLabels := make([]int, len(idx))
	for i, j := range idx {
		outTexts[i] = texts[j]
		outLabels[i] = labels[j]
	}
	return outTexts, outLabels
}

func pickInts(values []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func intLabelsToStrings(labels []int) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = fmt.Sprintf("%d", l)
	}
	return out
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func distribution(labels []int) map[int]int {
	dist := make(map[int]int)
	for _, l := range labels {
		dist[l]++
	}
	return dist
}
