package sentiment

import (
	"math"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Lexicon scores text by word polarity. It backs the secondary analyzer
// when no transformer runtime is available and serves as the last-resort
// path for the primary classifier, so the engine always produces some
// sentiment estimate.
type Lexicon struct {
	language Language
	words    map[string]float64
	negators map[string]bool
}

// NewLexicon builds the polarity lexicon for a language.
func NewLexicon(lang Language) *Lexicon {
	lex := &Lexicon{language: lang, words: make(map[string]float64)}
	if lang == Vietnamese {
		lex.words = vietnamesePolarity
		lex.negators = toSet([]string{"không", "chẳng", "chả", "đừng"})
	} else {
		lex.words = englishPolarity
		lex.negators = toSet([]string{"not", "no", "never", "neither", "nor"})
	}
	return lex
}

// Polarity returns a score in [-1, 1] for the text. Negators within the two
// preceding tokens flip and dampen a word's contribution.
func (l *Lexicon) Polarity(text string) float64 {
	tokens := strings.Fields(strings.ToLower(text))
	var total float64
	var matches int
	for i, tok := range tokens {
		tok = strings.Trim(tok, ".,!?;:\"'()")
		score, ok := l.words[tok]
		if !ok && i+1 < len(tokens) {
			// Compound entries like "chất lượng" span two tokens.
			pair := tok + " " + strings.Trim(tokens[i+1], ".,!?;:\"'()")
			score, ok = l.words[pair]
		}
		if !ok {
			continue
		}
		for j := maxOf(0, i-2); j < i; j++ {
			if l.negators[tokens[j]] {
				score = -score * 0.5
				break
			}
		}
		total += score
		matches++
	}
	if matches == 0 {
		return 0
	}
	return clamp(total/float64(matches), -1, 1)
}

// Predict converts the polarity score into the common prediction contract:
// above 0.1 positive, below -0.1 negative, else neutral. Confidence is the
// capped magnitude for polar results and its complement for neutral ones.
func (l *Lexicon) Predict(text string) Prediction {
	polarity := l.Polarity(text)

	var sentiment Class
	var confidence float64
	switch {
	case polarity > 0.1:
		sentiment = Positive
		confidence = math.Min(polarity, 1.0)
	case polarity < -0.1:
		sentiment = Negative
		confidence = math.Min(math.Abs(polarity), 1.0)
	default:
		sentiment = Neutral
		confidence = 1.0 - math.Abs(polarity)
	}

	probs := map[Class]float64{Positive: 0.33, Negative: 0.33, Neutral: 0.34}
	probs[sentiment] = confidence
	return Prediction{
		Sentiment:     sentiment,
		Confidence:    confidence,
		Probabilities: renormalize(probs),
		Language:      l.language,
		Algorithm:     "lexicon",
	}
}

// TransformerAnalyzer is the secondary classification path. It shares the
// Predict contract with Analyzer and routes through a transformer runtime
// when one is configured and present; otherwise every prediction comes from
// the lexicon heuristic.
type TransformerAnalyzer struct {
	language Language
	modelDir string
	lexicon  *Lexicon
	log      *zap.Logger
	warn     sync.Once
}

// NewTransformerAnalyzer creates the secondary analyzer. modelDir may be
// empty, which pins the analyzer to the lexicon fallback.
func NewTransformerAnalyzer(lang Language, modelDir string, log *zap.Logger) *TransformerAnalyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransformerAnalyzer{
		language: lang,
		modelDir: modelDir,
		lexicon:  NewLexicon(lang),
		log:      log,
	}
}

// Available reports whether a transformer model directory is configured and
// present on disk. No in-process runtime ships with the engine, so this
// gates future integration rather than current inference.
func (t *TransformerAnalyzer) Available() bool {
	if t.modelDir == "" {
		return false
	}
	info, err := os.Stat(t.modelDir)
	return err == nil && info.IsDir()
}

// Predict classifies the text, degrading to the lexicon heuristic whenever
// the transformer path is unavailable.
func (t *TransformerAnalyzer) Predict(text string) Prediction {
	if strings.TrimSpace(text) == "" {
		p := neutralPrediction()
		p.Language = t.language
		p.Algorithm = "lexicon"
		return p
	}
	if !t.Available() {
		t.warn.Do(func() {
			t.log.Info("transformer model unavailable, using lexicon fallback",
				zap.String("language", string(t.language)),
				zap.String("model_dir", t.modelDir))
		})
	}
	return t.lexicon.Predict(text)
}

// englishPolarity weights common review vocabulary. Strong terms approach
// the caps so a single clear word is enough to cross the polarity
// thresholds.
var englishPolarity = map[string]float64{
	"amazing": 0.9, "excellent": 0.9, "outstanding": 0.9, "perfect": 1.0,
	"fantastic": 0.9, "awesome": 0.8, "wonderful": 0.8, "love": 0.8,
	"loved": 0.8, "great": 0.7, "best": 0.8, "good": 0.5, "nice": 0.4,
	"fine": 0.3, "decent": 0.3, "solid": 0.4, "okay": 0.1, "recommend": 0.6,
	"happy": 0.6, "satisfied": 0.6, "fast": 0.4, "quality": 0.3,
	"terrible": -0.9, "awful": -0.9, "horrible": -0.9, "worst": -0.9,
	"hate": -0.8, "hated": -0.8, "useless": -0.8, "garbage": -0.8,
	"trash": -0.8, "broken": -0.7, "bad": -0.5, "poor": -0.6,
	"disappointing": -0.6, "disappointed": -0.6, "slow": -0.4,
	"cheap": -0.3, "waste": -0.7, "refund": -0.5, "defective": -0.8,
}

// vietnamesePolarity covers the Vietnamese review vocabulary, including the
// compound entries matched as token pairs.
var vietnamesePolarity = map[string]float64{
	"tuyệt": 0.9, "tuyệt vời": 0.9, "xuất sắc": 0.9, "hoàn hảo": 1.0,
	"tốt": 0.6, "đẹp": 0.6, "hay": 0.5, "ổn": 0.3, "ưng ý": 0.7,
	"hài lòng": 0.7, "yêu": 0.7, "thích": 0.6, "nhanh": 0.4,
	"đáng tiền": 0.7, "chất lượng": 0.4, "rẻ": 0.3,
	"tệ": -0.8, "dở": -0.7, "xấu": -0.6, "chán": -0.5, "kém": -0.6,
	"hỏng": -0.7, "hư": -0.7, "chậm": -0.4, "thất vọng": -0.8,
	"kinh khủng": -0.9, "tồi tệ": -0.9, "rác": -0.8, "phí tiền": -0.8,
	"ghét": -0.7, "đắt": -0.3, "không đáng": -0.7,
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
