package sentiment

import (
	"math"
	"reflect"
	"testing"
)

var fitDocs = []string{
	"good product",
	"good service",
	"bad product",
	"bad service",
}

func TestVectorizerFit(t *testing.T) {
	v := NewVectorizer(English)
	if err := v.Fit(fitDocs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Each unigram appears in two documents; every bigram appears in only
	// one and must be filtered by the minimum document frequency.
	for _, term := range []string{"good", "bad", "product", "service"} {
		if _, ok := v.Vocabulary[term]; !ok {
			t.Errorf("vocabulary missing %q", term)
		}
	}
	if _, ok := v.Vocabulary["good product"]; ok {
		t.Error("vocabulary contains a single-document bigram")
	}
	if got := v.NumFeatures(); got != 4 {
		t.Errorf("NumFeatures = %d, want 4", got)
	}
}

func TestVectorizerFitDeterministic(t *testing.T) {
	a := NewVectorizer(English)
	b := NewVectorizer(English)
	if err := a.Fit(fitDocs); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if err := b.Fit(fitDocs); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !reflect.DeepEqual(a.Vocabulary, b.Vocabulary) {
		t.Error("two fits over the same corpus produced different vocabularies")
	}
}

func TestVectorizerTransform(t *testing.T) {
	v := NewVectorizer(English)
	if err := v.Fit(fitDocs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	vec, err := v.Transform("good product excellent")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("Transform returned %d features, want 2 (unseen terms ignored)", len(vec))
	}

	var sumSquares float64
	for _, val := range vec {
		sumSquares += val * val
	}
	if math.Abs(sumSquares-1.0) > 1e-9 {
		t.Errorf("vector norm squared = %v, want 1.0", sumSquares)
	}
}

func TestVectorizerTransformEmpty(t *testing.T) {
	v := NewVectorizer(English)
	if err := v.Fit(fitDocs); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vec, err := v.Transform("unseen words only")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(vec) != 0 {
		t.Errorf("Transform of all-unseen text = %v, want empty", vec)
	}
}

func TestVectorizerNotFitted(t *testing.T) {
	v := NewVectorizer(English)
	if _, err := v.Transform("anything"); err != ErrNotFitted {
		t.Errorf("Transform before Fit: err = %v, want ErrNotFitted", err)
	}
}

func TestVectorizerFitEmptyCorpus(t *testing.T) {
	v := NewVectorizer(English)
	if err := v.Fit(nil); err == nil {
		t.Error("Fit on empty corpus did not fail")
	}
}
