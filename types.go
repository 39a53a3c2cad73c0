package sentiment

import (
	"strconv"
	"strings"
)

// Language selects a per-language analyzer configuration.
type Language string

const (
	English    Language = "en"
	Vietnamese Language = "vi"
)

// SupportedLanguages returns the languages the engine ships analyzers for.
func SupportedLanguages() []Language {
	return []Language{English, Vietnamese}
}

// Class is a sentiment label produced by classification.
type Class string

const (
	Positive Class = "positive"
	Negative Class = "negative"
	Neutral  Class = "neutral"
)

// classOrder is the canonical iteration order used wherever ties between
// equal counts must be broken deterministically.
var classOrder = []Class{Positive, Negative, Neutral}

// Classes returns the three sentiment classes in canonical order.
func Classes() []Class {
	return []Class{Positive, Negative, Neutral}
}

// Prediction is the result of classifying a single text.
type Prediction struct {
	Sentiment     Class
	Confidence    float64
	Probabilities map[Class]float64
	Language      Language
	Algorithm     string
}

// neutralPrediction is the degraded answer used whenever no model is
// available or the input carries no signal.
func neutralPrediction() Prediction {
	return Prediction{
		Sentiment:  Neutral,
		Confidence: 0.0,
		Probabilities: map[Class]float64{
			Negative: 0.33,
			Neutral:  0.34,
			Positive: 0.33,
		},
	}
}

// labelIndex maps a sentiment class to its numeric training label.
var labelIndex = map[Class]int{Negative: 0, Neutral: 1, Positive: 2}

// LabelFor returns the numeric training label for a class (negative=0,
// neutral=1, positive=2). Unknown classes map to neutral.
func LabelFor(c Class) int {
	if idx, ok := labelIndex[c]; ok {
		return idx
	}
	return 1
}

// classForLabels normalizes a raw model class value back onto the three
// canonical classes. The mapping depends on the full class set the model was
// trained with: binary numeric sets are negative/positive, ternary numeric
// sets are negative/neutral/positive, and string labels are matched
// case-insensitively against known aliases.
func classForLabels(classes []string, raw string) Class {
	if isNumericSet(classes, "0", "1") {
		if raw == "1" {
			return Positive
		}
		return Negative
	}
	if allNumeric(classes) {
		switch raw {
		case "0":
			return Negative
		case "2":
			return Positive
		default:
			return Neutral
		}
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pos", "positive", "1":
		return Positive
	case "neg", "negative", "0":
		return Negative
	case "neu", "neutral", "2":
		return Neutral
	}
	return Neutral
}

// allNumeric reports whether every class value parses as an integer.
func allNumeric(classes []string) bool {
	for _, c := range classes {
		if _, err := strconv.Atoi(c); err != nil {
			return false
		}
	}
	return len(classes) > 0
}

// isNumericSet reports whether classes contains exactly the given members,
// all of them numeric.
func isNumericSet(classes []string, members ...string) bool {
	if len(classes) != len(members) {
		return false
	}
	want := make(map[string]bool, len(members))
	for _, m := range members {
		want[m] = true
	}
	for _, c := range classes {
		if _, err := strconv.Atoi(c); err != nil {
			return false
		}
		if !want[c] {
			return false
		}
		delete(want, c)
	}
	return len(want) == 0
}

// renormalize maps probs onto the three canonical keys so they sum to 1.0,
// filling missing classes with zero. A degenerate all-zero map becomes the
// neutral default distribution.
func renormalize(probs map[Class]float64) map[Class]float64 {
	out := map[Class]float64{Negative: 0, Neutral: 0, Positive: 0}
	total := 0.0
	for _, c := range Classes() {
		if v, ok := probs[c]; ok && v > 0 {
			out[c] = v
			total += v
		}
	}
	if total == 0 {
		return map[Class]float64{Negative: 0.33, Neutral: 0.34, Positive: 0.33}
	}
	for c := range out {
		out[c] /= total
	}
	return out
}
