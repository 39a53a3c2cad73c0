package sentiment

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// vietnameseRunes is the full accented vowel/consonant range used by
// Vietnamese. Characters in this set are preserved by the Vietnamese
// preprocessing charset and drive language routing.
const vietnameseRunes = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ"

var vietnameseRuneSet = func() map[rune]bool {
	set := make(map[rune]bool)
	for _, r := range vietnameseRunes {
		set[r] = true
	}
	return set
}()

// Preprocessor normalizes raw review text for a single language. It is a
// pure function of its input; shared linguistic resources are cached once at
// process scope.
type Preprocessor struct {
	language  Language
	stopwords map[string]bool
}

// NewPreprocessor creates a preprocessor for the given language. The
// per-language stopword set excludes the sentiment-preserving subset so
// negation and intensity signal survives normalization.
func NewPreprocessor(lang Language) *Preprocessor {
	stop := make(map[string]bool)
	var source map[string]bool
	if lang == Vietnamese {
		source = vietnameseStopwords
	} else {
		source = englishStopwords
	}
	preserving := sentimentPreserving[lang]
	for w := range source {
		if !preserving[w] {
			stop[w] = true
		}
	}
	return &Preprocessor{language: lang, stopwords: stop}
}

// Preprocess lowercases, filters the text to the language's allowed
// character set, collapses whitespace, removes stopwords, and for Vietnamese
// joins known compound words into single tokens. It never fails; pathological
// input degrades to an empty string.
func (p *Preprocessor) Preprocess(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(norm.NFC.String(text))
	text = p.filterCharset(text)

	tokens := strings.Fields(text)
	if p.language == Vietnamese {
		tokens = segmentVietnamese(tokens)
	}

	kept := tokens[:0]
	for _, tok := range tokens {
		if p.stopwords[strings.ReplaceAll(tok, "_", " ")] {
			continue
		}
		// Short tokens are noise in the Latin-script configuration.
		if p.language != Vietnamese && len([]rune(tok)) <= 2 {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// filterCharset replaces every rune outside the language's allowed set with
// a space. English keeps word characters only; Vietnamese additionally keeps
// its accented range so sentiment-bearing words are never corrupted.
func (p *Preprocessor) filterCharset(text string) string {
	allowVietnamese := p.language == Vietnamese
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ', r == '\t', r == '\n', r == '\r':
			return ' '
		case allowVietnamese && vietnameseRuneSet[r]:
			return r
		default:
			return ' '
		}
	}, text)
}

// segmentVietnamese performs dictionary-based word segmentation: runs of up
// to three tokens matching a known compound are joined with underscores so
// the vectorizer sees them as single terms. Tokens with no dictionary match
// pass through unchanged, which is also the behavior when the dictionary
// fails to load.
func segmentVietnamese(tokens []string) []string {
	dict := vietnameseCompoundSet()
	if len(dict) == 0 {
		return tokens
	}
	var out []string
	for i := 0; i < len(tokens); {
		matched := false
		for span := 3; span >= 2; span-- {
			if i+span > len(tokens) {
				continue
			}
			candidate := strings.Join(tokens[i:i+span], " ")
			if dict[candidate] {
				out = append(out, strings.ReplaceAll(candidate, " ", "_"))
				i += span
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return out
}

var (
	viCompoundOnce sync.Once
	viCompoundDict map[string]bool

	// ViCompoundDictPath optionally points at a newline-delimited compound
	// word list merged into the built-in dictionary on first use. Load
	// failure is ignored; segmentation degrades to the built-in entries.
	ViCompoundDictPath string
)

func vietnameseCompoundSet() map[string]bool {
	viCompoundOnce.Do(func() {
		viCompoundDict = make(map[string]bool, len(vietnameseCompounds))
		for _, c := range vietnameseCompounds {
			viCompoundDict[c] = true
		}
		if ViCompoundDictPath == "" {
			return
		}
		f, err := os.Open(ViCompoundDictPath)
		if err != nil {
			return
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if line != "" {
				viCompoundDict[line] = true
			}
		}
	})
	return viCompoundDict
}
