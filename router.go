package sentiment

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DetectLanguage routes by character-set sniffing: any Vietnamese diacritic
// in the lowercased text selects Vietnamese, else English. This is a coarse
// heuristic by design, not true language identification; loanword false
// positives are acceptable.
func DetectLanguage(text string) Language {
	if text == "" {
		return English
	}
	for _, r := range strings.ToLower(text) {
		if vietnameseRuneSet[r] {
			return Vietnamese
		}
	}
	return English
}

// Router owns one lazily constructed analyzer per language for the life of
// the process and dispatches predictions by detected language. It replaces
// the hidden module-level singleton of earlier designs with an explicit,
// resettable registry.
type Router struct {
	store *ModelStore
	log   *zap.Logger

	mu        sync.Mutex
	analyzers map[Language]*Analyzer
}

// NewRouter creates an empty registry backed by the given model store.
func NewRouter(store *ModelStore, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		store:     store,
		log:       log,
		analyzers: make(map[Language]*Analyzer),
	}
}

// Analyzer returns the registry's analyzer for a language, constructing it
// on first use.
func (r *Router) Analyzer(lang Language) *Analyzer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.analyzers[lang]; ok {
		return a
	}
	a := NewAnalyzer(lang, r.store, r.log)
	r.analyzers[lang] = a
	return a
}

// DetectAndPredict detects the text's language and classifies it with that
// language's analyzer. The returned prediction carries the language tag.
func (r *Router) DetectAndPredict(text string) Prediction {
	lang := DetectLanguage(text)
	p := r.Analyzer(lang).Predict(text)
	p.Language = lang
	return p
}

// Reset discards all cached analyzers. Intended for test isolation and for
// picking up freshly trained artifacts without restarting the process.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers = make(map[Language]*Analyzer)
}
