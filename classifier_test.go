package sentiment

import (
	"math"
	"testing"
)

func TestNaiveBayesFitAndPredict(t *testing.T) {
	vectors := []map[int]float64{
		{0: 1.0},
		{0: 1.0, 1: 0.5},
		{2: 1.0},
		{2: 1.0, 1: 0.5},
	}
	labels := []string{"0", "0", "2", "2"}

	nb := NewNaiveBayes()
	if err := nb.Fit(vectors, labels, 3); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !nb.Trained() {
		t.Fatal("Trained() = false after Fit")
	}
	if len(nb.Classes) != 2 || nb.Classes[0] != "0" || nb.Classes[1] != "2" {
		t.Fatalf("Classes = %v, want sorted [0 2]", nb.Classes)
	}

	raw, probs, err := nb.Predict(map[int]float64{0: 1.0})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if raw != "0" {
		t.Errorf("Predict = %q, want 0", raw)
	}
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("posterior sums to %v, want 1.0", sum)
	}
}

func TestNaiveBayesUntrained(t *testing.T) {
	nb := NewNaiveBayes()
	if _, err := nb.PredictProba(map[int]float64{0: 1}); err == nil {
		t.Error("PredictProba on untrained model did not fail")
	}
}

func TestNaiveBayesFitRejectsMismatch(t *testing.T) {
	nb := NewNaiveBayes()
	if err := nb.Fit(nil, nil, 0); err == nil {
		t.Error("Fit on empty input did not fail")
	}
	if err := nb.Fit([]map[int]float64{{0: 1}}, []string{"0", "2"}, 1); err == nil {
		t.Error("Fit with mismatched lengths did not fail")
	}
}

var trainTexts = []string{
	"amazing excellent wonderful",
	"amazing excellent purchase",
	"wonderful excellent camera",
	"amazing wonderful camera",
	"terrible awful broken",
	"terrible awful purchase",
	"broken awful camera",
	"terrible broken camera",
	"mediocre unremarkable ordinary",
	"mediocre unremarkable purchase",
	"ordinary unremarkable camera",
	"mediocre ordinary camera",
}

var trainLabels = []int{2, 2, 2, 2, 0, 0, 0, 0, 1, 1, 1, 1}

func TestAnalyzerTrainAndPredict(t *testing.T) {
	a := NewAnalyzer(English, nil, nil)
	accuracy, _, err := a.Train(trainTexts, trainLabels, 0.25)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if accuracy < 0 || accuracy > 1 {
		t.Errorf("accuracy %v out of range", accuracy)
	}
	if !a.Trained() {
		t.Fatal("Trained() = false after Train")
	}

	tests := []struct {
		text string
		want Class
	}{
		{"amazing excellent camera", Positive},
		{"terrible awful camera", Negative},
		{"mediocre ordinary camera", Neutral},
	}
	for _, tt := range tests {
		p := a.Predict(tt.text)
		if p.Sentiment != tt.want {
			t.Errorf("Predict(%q) = %q, want %q", tt.text, p.Sentiment, tt.want)
		}
		if p.Algorithm != "naive_bayes" {
			t.Errorf("Algorithm = %q, want naive_bayes", p.Algorithm)
		}
		assertValidPrediction(t, p)

		maxProb := 0.0
		for _, v := range p.Probabilities {
			if v > maxProb {
				maxProb = v
			}
		}
		if math.Abs(p.Confidence-maxProb) > 1e-6 {
			t.Errorf("Confidence = %v, want max probability %v", p.Confidence, maxProb)
		}
	}
}

func TestAnalyzerPredictBlankText(t *testing.T) {
	a := NewAnalyzer(English, nil, nil)
	p := a.Predict("   ")
	if p.Sentiment != Neutral || p.Confidence != 0 {
		t.Errorf("blank text: got %q/%v, want neutral with zero confidence", p.Sentiment, p.Confidence)
	}
}

func TestAnalyzerPredictWithoutModel(t *testing.T) {
	a := NewAnalyzer(English, nil, nil)
	p := a.Predict("this product is amazing")
	if p.Sentiment != Neutral {
		t.Errorf("untrained analyzer: Sentiment = %q, want neutral default", p.Sentiment)
	}
	if p.Confidence != 0 {
		t.Errorf("untrained analyzer: Confidence = %v, want 0", p.Confidence)
	}
	assertValidPrediction(t, p)
}

func TestAnalyzerRoundTripPredictions(t *testing.T) {
	store := NewModelStore(t.TempDir(), nil, nil)

	trained := NewAnalyzer(English, store, nil)
	if _, _, err := trained.Train(trainTexts, trainLabels, 0.25); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := trained.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh analyzer backed by the same store must lazily load the saved
	// artifacts and reproduce the in-memory predictions.
	loaded := NewAnalyzer(English, store, nil)
	for _, text := range []string{"amazing excellent camera", "terrible broken screen", "mediocre ordinary purchase"} {
		want := trained.Predict(text)
		got := loaded.Predict(text)
		if got.Sentiment != want.Sentiment {
			t.Errorf("Predict(%q) after reload = %q, want %q", text, got.Sentiment, want.Sentiment)
		}
		if math.Abs(got.Confidence-want.Confidence) > 1e-9 {
			t.Errorf("Predict(%q) confidence after reload = %v, want %v", text, got.Confidence, want.Confidence)
		}
	}
}

func TestEvaluateReport(t *testing.T) {
	predicted := []Class{Positive, Positive, Negative, Neutral}
	truth := []Class{Positive, Negative, Negative, Neutral}

	report := evaluate(predicted, truth)
	if math.Abs(report.Accuracy-0.75) > 1e-9 {
		t.Errorf("Accuracy = %v, want 0.75", report.Accuracy)
	}
	pos := report.PerClass[Positive]
	if math.Abs(pos.Precision-0.5) > 1e-9 {
		t.Errorf("positive precision = %v, want 0.5", pos.Precision)
	}
	if math.Abs(pos.Recall-1.0) > 1e-9 {
		t.Errorf("positive recall = %v, want 1.0", pos.Recall)
	}
	neg := report.PerClass[Negative]
	if math.Abs(neg.Recall-0.5) > 1e-9 {
		t.Errorf("negative recall = %v, want 0.5", neg.Recall)
	}
}
