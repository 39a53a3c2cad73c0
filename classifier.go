package sentiment

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// NaiveBayes is a multinomial naive Bayes model over TF-IDF features with
// Laplace smoothing. Fields are exported for gob serialization.
type NaiveBayes struct {
	Classes        []string
	ClassLogPrior  []float64
	FeatureLogProb [][]float64
	NumFeatures    int
	Alpha          float64
}

// NewNaiveBayes creates an untrained model with the default smoothing.
func NewNaiveBayes() *NaiveBayes {
	return &NaiveBayes{Alpha: 1.0}
}

// Trained reports whether the model carries fitted parameters.
func (nb *NaiveBayes) Trained() bool {
	return len(nb.Classes) > 0 && len(nb.FeatureLogProb) == len(nb.Classes)
}

// Fit estimates class priors and per-class feature likelihoods from sparse
// feature vectors. Labels are free-form strings; the observed distinct
// values become the model's class set in sorted order.
func (nb *NaiveBayes) Fit(vectors []map[int]float64, labels []string, numFeatures int) error {
	if len(vectors) == 0 || len(vectors) != len(labels) {
		return errors.New("sentiment: naive bayes fit requires matching non-empty vectors and labels")
	}
	if nb.Alpha <= 0 {
		nb.Alpha = 1.0
	}

	classIndex := make(map[string]int)
	for _, label := range labels {
		if _, ok := classIndex[label]; !ok {
			classIndex[label] = 0
		}
	}
	nb.Classes = nb.Classes[:0]
	for label := range classIndex {
		nb.Classes = append(nb.Classes, label)
	}
	sort.Strings(nb.Classes)
	for i, c := range nb.Classes {
		classIndex[c] = i
	}

	k := len(nb.Classes)
	classCount := make([]float64, k)
	featureCount := make([][]float64, k)
	featureTotal := make([]float64, k)
	for i := range featureCount {
		featureCount[i] = make([]float64, numFeatures)
	}

	for i, vec := range vectors {
		ci := classIndex[labels[i]]
		classCount[ci]++
		for idx, val := range vec {
			if idx < numFeatures {
				featureCount[ci][idx] += val
				featureTotal[ci] += val
			}
		}
	}

	total := floats.Sum(classCount)
	nb.NumFeatures = numFeatures
	nb.ClassLogPrior = make([]float64, k)
	nb.FeatureLogProb = make([][]float64, k)
	for ci := 0; ci < k; ci++ {
		nb.ClassLogPrior[ci] = math.Log(classCount[ci] / total)
		nb.FeatureLogProb[ci] = make([]float64, numFeatures)
		denom := math.Log(featureTotal[ci] + nb.Alpha*float64(numFeatures))
		for f := 0; f < numFeatures; f++ {
			nb.FeatureLogProb[ci][f] = math.Log(featureCount[ci][f]+nb.Alpha) - denom
		}
	}
	return nil
}

// PredictProba returns the posterior distribution over the model's classes
// for one sparse feature vector.
func (nb *NaiveBayes) PredictProba(vec map[int]float64) ([]float64, error) {
	if !nb.Trained() {
		return nil, errors.New("sentiment: naive bayes model not trained")
	}
	scores := make([]float64, len(nb.Classes))
	copy(scores, nb.ClassLogPrior)
	for idx, val := range vec {
		if idx >= nb.NumFeatures {
			continue
		}
		for ci := range scores {
			scores[ci] += val * nb.FeatureLogProb[ci][idx]
		}
	}
	// Softmax in log space for numeric stability.
	max := floats.Max(scores)
	sum := 0.0
	for ci, s := range scores {
		scores[ci] = math.Exp(s - max)
		sum += scores[ci]
	}
	for ci := range scores {
		scores[ci] /= sum
	}
	return scores, nil
}

// Predict returns the most probable class and the full posterior.
func (nb *NaiveBayes) Predict(vec map[int]float64) (string, []float64, error) {
	probs, err := nb.PredictProba(vec)
	if err != nil {
		return "", nil, err
	}
	best := 0
	for ci := range probs {
		if probs[ci] > probs[best] {
			best = ci
		}
	}
	return nb.Classes[best], probs, nil
}

// ClassMetrics holds per-class evaluation figures.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a classification report over a held-out set.
type Report struct {
	Accuracy float64
	PerClass map[Class]ClassMetrics
}

// evaluate computes accuracy plus per-class precision/recall/F1 from
// predicted and true class labels (both already canonical).
func evaluate(predicted, truth []Class) Report {
	report := Report{PerClass: make(map[Class]ClassMetrics)}
	if len(truth) == 0 {
		return report
	}
	correct := 0
	tp := make(map[Class]int)
	fp := make(map[Class]int)
	fn := make(map[Class]int)
	support := make(map[Class]int)
	for i := range truth {
		support[truth[i]]++
		if predicted[i] == truth[i] {
			correct++
			tp[truth[i]]++
		} else {
			fp[predicted[i]]++
			fn[truth[i]]++
		}
	}
	report.Accuracy = float64(correct) / float64(len(truth))
	for _, c := range Classes() {
		m := ClassMetrics{Support: support[c]}
		if tp[c]+fp[c] > 0 {
			m.Precision = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			m.Recall = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.PerClass[c] = m
	}
	return report
}

// Analyzer is the per-language classification pipeline: preprocessing,
// TF-IDF vectorization, and the naive Bayes model, with lazy artifact
// loading and a lexicon fallback for internal failures. Prediction is a
// best-effort annotation and never returns an error.
type Analyzer struct {
	language Language
	pre      *Preprocessor
	lexicon  *Lexicon
	store    *ModelStore
	log      *zap.Logger

	mu       sync.Mutex
	loaded   bool
	vec      *Vectorizer
	nb       *NaiveBayes
}

// NewAnalyzer creates an analyzer for one language. The model store may be
// nil, in which case predictions degrade to the neutral default until Train
// is called.
func NewAnalyzer(lang Language, store *ModelStore, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{
		language: lang,
		pre:      NewPreprocessor(lang),
		lexicon:  NewLexicon(lang),
		store:    store,
		log:      log,
		vec:      NewVectorizer(lang),
		nb:       NewNaiveBayes(),
	}
}

// Train fits the vectorizer and model on labeled texts, reporting held-out
// accuracy from an internal stratified split, then refits on the full data
// so the returned model uses every example. Persistence is the caller's
// decision.
func (a *Analyzer) Train(texts []string, labels []int, testFraction float64) (float64, Report, error) {
	if len(texts) == 0 || len(texts) != len(labels) {
		return 0, Report{}, errors.New("sentiment: training requires matching non-empty texts and labels")
	}

	processed := make([]string, len(texts))
	for i, t := range texts {
		processed[i] = a.pre.Preprocess(t)
	}
	strLabels := make([]string, len(labels))
	for i, l := range labels {
		strLabels[i] = strconv.Itoa(l)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.vec = NewVectorizer(a.language)
	if err := a.vec.Fit(processed); err != nil {
		return 0, Report{}, fmt.Errorf("fit vectorizer: %w", err)
	}
	vectors := make([]map[int]float64, len(processed))
	for i, doc := range processed {
		v, err := a.vec.Transform(doc)
		if err != nil {
			return 0, Report{}, fmt.Errorf("vectorize training text: %w", err)
		}
		vectors[i] = v
	}

	accuracy := 1.0
	report := Report{}
	if testFraction > 0 && len(vectors) >= 5 {
		trainIdx, testIdx := stratifiedIndexSplit(strLabels, testFraction, splitSeed)
		holdout := NewNaiveBayes()
		if err := holdout.Fit(pick(vectors, trainIdx), pickStrings(strLabels, trainIdx), a.vec.NumFeatures()); err != nil {
			return 0, Report{}, fmt.Errorf("fit holdout model: %w", err)
		}
		predicted := make([]Class, len(testIdx))
		truth := make([]Class, len(testIdx))
		for i, idx := range testIdx {
			raw, _, err := holdout.Predict(vectors[idx])
			if err != nil {
				return 0, Report{}, fmt.Errorf("evaluate holdout model: %w", err)
			}
			predicted[i] = classForLabels(holdout.Classes, raw)
			truth[i] = classForLabels(holdout.Classes, strLabels[idx])
		}
		report = evaluate(predicted, truth)
		accuracy = report.Accuracy
	}

	a.nb = NewNaiveBayes()
	if err := a.nb.Fit(vectors, strLabels, a.vec.NumFeatures()); err != nil {
		return 0, Report{}, fmt.Errorf("fit final model: %w", err)
	}
	a.loaded = true
	a.log.Info("trained naive bayes model",
		zap.String("language", string(a.language)),
		zap.Int("examples", len(texts)),
		zap.Int("features", a.vec.NumFeatures()),
		zap.Float64("holdout_accuracy", accuracy))
	return accuracy, report, nil
}

// Predict classifies one text. Blank input returns the neutral default
// without touching the model; a missing artifact degrades to the neutral
// default; any internal failure degrades to the lexicon estimate.
func (a *Analyzer) Predict(text string) Prediction {
	if strings.TrimSpace(text) == "" {
		p := neutralPrediction()
		p.Language = a.language
		p.Algorithm = "naive_bayes"
		return p
	}

	a.ensureLoaded()
	a.mu.Lock()
	vec, nb, ready := a.vec, a.nb, a.loaded
	a.mu.Unlock()

	if !ready || !nb.Trained() || !vec.Fitted() {
		p := neutralPrediction()
		p.Language = a.language
		p.Algorithm = "naive_bayes"
		return p
	}

	features, err := vec.Transform(a.pre.Preprocess(text))
	if err != nil {
		a.log.Warn("vectorize failed, using lexicon fallback", zap.Error(err))
		return a.lexiconFallback(text)
	}
	raw, probs, err := nb.Predict(features)
	if err != nil {
		a.log.Warn("predict failed, using lexicon fallback", zap.Error(err))
		return a.lexiconFallback(text)
	}

	dist := map[Class]float64{}
	for i, cls := range nb.Classes {
		dist[classForLabels(nb.Classes, cls)] += probs[i]
	}
	dist = renormalize(dist)
	confidence := floats.Max(probs)
	return Prediction{
		Sentiment:     classForLabels(nb.Classes, raw),
		Confidence:    confidence,
		Probabilities: dist,
		Language:      a.language,
		Algorithm:     "naive_bayes",
	}
}

// Trained reports whether a model is in memory, attempting a lazy load
// first.
func (a *Analyzer) Trained() bool {
	a.ensureLoaded()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded && a.nb.Trained()
}

// Save persists the in-memory model through the analyzer's store.
func (a *Analyzer) Save() error {
	if a.store == nil {
		return errors.New("sentiment: analyzer has no model store")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded || !a.nb.Trained() {
		return errors.New("sentiment: no trained model to save")
	}
	return a.store.Save(a.vec, a.nb, a.language)
}

// ensureLoaded performs the one-time lazy load from persistence. A racing
// duplicate load is harmless since loaded artifacts are read-only.
func (a *Analyzer) ensureLoaded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded || a.store == nil {
		return
	}
	vec, nb, found, err := a.store.Load(a.language)
	if err != nil {
		a.log.Warn("model load failed", zap.String("language", string(a.language)), zap.Error(err))
		return
	}
	if !found {
		return
	}
	a.vec, a.nb, a.loaded = vec, nb, true
	a.log.Info("loaded sentiment model", zap.String("language", string(a.language)))
}

func (a *Analyzer) lexiconFallback(text string) Prediction {
	p := a.lexicon.Predict(text)
	p.Language = a.language
	return p
}

func pick(vectors []map[int]float64, idx []int) []map[int]float64 {
	out := make([]map[int]float64, len(idx))
	for i, j := range idx {
		out[i] = vectors[j]
	}
	return out
}

func pickStrings(values []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
