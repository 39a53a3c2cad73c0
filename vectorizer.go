package sentiment

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/bbalet/stopwords"
	"gonum.org/v1/gonum/floats"
)

const (
	maxVocabularyTerms = 5000
	minDocumentFreq    = 2
	maxDocumentRatio   = 0.95
)

// ErrNotFitted is returned when a vectorizer is used before Fit or a
// successful load from persistence.
var ErrNotFitted = errors.New("sentiment: vectorizer not fitted")

// Vectorizer converts preprocessed text into TF-IDF weighted feature vectors
// over a fixed unigram+bigram vocabulary. Fields are exported for gob
// serialization; treat them as read-only after Fit.
type Vectorizer struct {
	Language   Language
	Vocabulary map[string]int
	Idf        []float64
}

// NewVectorizer creates an unfitted vectorizer for the given language.
func NewVectorizer(lang Language) *Vectorizer {
	return &Vectorizer{Language: lang}
}

// Fitted reports whether the vectorizer carries a usable vocabulary.
func (v *Vectorizer) Fitted() bool {
	return len(v.Vocabulary) > 0 && len(v.Idf) == len(v.Vocabulary)
}

// Fit learns the vocabulary and inverse document frequencies from a corpus
// of preprocessed documents. Terms must appear in at least two documents and
// in at most 95% of them; the vocabulary is capped at 5000 terms by corpus
// frequency with a lexicographic tie-break for determinism.
func (v *Vectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return errors.New("sentiment: cannot fit vectorizer on empty corpus")
	}

	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, doc := range docs {
		terms := v.terms(doc)
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			termFreq[t]++
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}

	maxDF := int(maxDocumentRatio * float64(len(docs)))
	if maxDF < 1 {
		maxDF = 1
	}
	minDF := minDocumentFreq
	if len(docs) < minDocumentFreq {
		minDF = 1
	}

	candidates := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= minDF && df <= maxDF {
			candidates = append(candidates, term)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if termFreq[candidates[i]] != termFreq[candidates[j]] {
			return termFreq[candidates[i]] > termFreq[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > maxVocabularyTerms {
		candidates = candidates[:maxVocabularyTerms]
	}
	sort.Strings(candidates)

	v.Vocabulary = make(map[string]int, len(candidates))
	v.Idf = make([]float64, len(candidates))
	n := float64(len(docs))
	for i, term := range candidates {
		v.Vocabulary[term] = i
		// Smoothed IDF so no term ever receives a zero weight.
		v.Idf[i] = logOnePlus(n, float64(docFreq[term]))
	}
	return nil
}

// Transform maps a preprocessed text onto the fitted vocabulary as a sparse
// L2-normalized TF-IDF vector. Unseen terms contribute nothing and never
// cause an error.
func (v *Vectorizer) Transform(doc string) (map[int]float64, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	vec := make(map[int]float64)
	for _, term := range v.terms(doc) {
		if idx, ok := v.Vocabulary[term]; ok {
			vec[idx] += v.Idf[idx]
		}
	}
	if len(vec) == 0 {
		return vec, nil
	}
	values := make([]float64, 0, len(vec))
	for _, val := range vec {
		values = append(values, val)
	}
	norm := floats.Norm(values, 2)
	if norm > 0 {
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec, nil
}

// NumFeatures returns the fitted vocabulary size.
func (v *Vectorizer) NumFeatures() int {
	return len(v.Vocabulary)
}

// terms produces the unigram and bigram terms of a preprocessed document.
// The English configuration drops built-in English stopwords here as well,
// independently of the preprocessor's removal. The sentiment-preserving set
// is exempt; the library's long list would otherwise swallow polarity words
// like "good" and "best".
func (v *Vectorizer) terms(doc string) []string {
	tokens := strings.Fields(doc)
	if v.Language == English {
		preserve := sentimentPreserving[English]
		kept := tokens[:0]
		for _, tok := range tokens {
			if !preserve[tok] && strings.TrimSpace(stopwords.CleanString(tok, "en", false)) == "" {
				continue
			}
			kept = append(kept, tok)
		}
		tokens = kept
	}
	terms := make([]string, 0, 2*len(tokens))
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// logOnePlus computes ln((1+n)/(1+df)) + 1, the smoothed IDF weighting.
func logOnePlus(n, df float64) float64 {
	return math.Log((1+n)/(1+df)) + 1
}
