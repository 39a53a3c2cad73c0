package sentiment

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	classifierFilePrefix = "naive_bayes_sentiment"
	vectorizerFilePrefix = "vectorizer_sentiment"
	artifactExt          = ".gob"
)

// ModelStore persists trained models as a pair of gob artifacts per
// language at a single canonical directory, and reads them back through an
// ordered list of fallback locations kept for compatibility with older
// layouts. Writes always target the canonical directory.
type ModelStore struct {
	canonicalDir string
	fallbackDirs []string
	log          *zap.Logger
}

// NewModelStore creates a store writing to canonicalDir. fallbackDirs are
// additional read-only roots searched, in order, after the canonical one.
func NewModelStore(canonicalDir string, fallbackDirs []string, log *zap.Logger) *ModelStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelStore{
		canonicalDir: canonicalDir,
		fallbackDirs: fallbackDirs,
		log:          log,
	}
}

func artifactNames(lang Language) (classifier, vectorizer string) {
	suffix := "_" + string(lang)
	return classifierFilePrefix + suffix + artifactExt, vectorizerFilePrefix + suffix + artifactExt
}

// legacyArtifactNames are the pre-multilingual file names without a
// language suffix.
func legacyArtifactNames() (classifier, vectorizer string) {
	return classifierFilePrefix + artifactExt, vectorizerFilePrefix + artifactExt
}

// Save writes the vectorizer and classifier for a language. Both blobs are
// fully serialized in memory before either file on disk is replaced, so a
// failed save never corrupts a previously saved artifact.
func (m *ModelStore) Save(vec *Vectorizer, nb *NaiveBayes, lang Language) error {
	if vec == nil || nb == nil || !vec.Fitted() || !nb.Trained() {
		return fmt.Errorf("sentiment: refusing to save incomplete model for language %q", lang)
	}

	var nbBuf, vecBuf bytes.Buffer
	if err := gob.NewEncoder(&nbBuf).Encode(nb); err != nil {
		return fmt.Errorf("encode classifier: %w", err)
	}
	if err := gob.NewEncoder(&vecBuf).Encode(vec); err != nil {
		return fmt.Errorf("encode vectorizer: %w", err)
	}

	if err := os.MkdirAll(m.canonicalDir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	nbName, vecName := artifactNames(lang)
	if err := writeFileAtomic(filepath.Join(m.canonicalDir, nbName), nbBuf.Bytes()); err != nil {
		return fmt.Errorf("write classifier artifact: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(m.canonicalDir, vecName), vecBuf.Bytes()); err != nil {
		return fmt.Errorf("write vectorizer artifact: %w", err)
	}
	m.log.Info("saved sentiment model",
		zap.String("language", string(lang)),
		zap.String("dir", m.canonicalDir))
	return nil
}

// Load searches the candidate locations in order and returns the first
// complete artifact pair. Per-language names are preferred at every root;
// legacy unsuffixed names are tried last. A location with only one of the
// two companion files is treated as absent and the search continues.
// Nothing found anywhere reports found=false with no error.
func (m *ModelStore) Load(lang Language) (*Vectorizer, *NaiveBayes, bool, error) {
	roots := append([]string{m.canonicalDir}, m.fallbackDirs...)
	nbName, vecName := artifactNames(lang)
	legacyNB, legacyVec := legacyArtifactNames()

	var candidates [][2]string
	for _, root := range roots {
		candidates = append(candidates, [2]string{
			filepath.Join(root, nbName), filepath.Join(root, vecName),
		})
	}
	for _, root := range roots {
		candidates = append(candidates, [2]string{
			filepath.Join(root, legacyNB), filepath.Join(root, legacyVec),
		})
	}

	for _, pair := range candidates {
		if !fileExists(pair[0]) || !fileExists(pair[1]) {
			continue
		}
		nb, vec, err := decodeArtifacts(pair[0], pair[1])
		if err != nil {
			return nil, nil, false, fmt.Errorf("decode artifacts at %s: %w", filepath.Dir(pair[0]), err)
		}
		m.log.Info("found sentiment model",
			zap.String("language", string(lang)),
			zap.String("classifier", pair[0]))
		return vec, nb, true, nil
	}
	return nil, nil, false, nil
}

func decodeArtifacts(nbPath, vecPath string) (*NaiveBayes, *Vectorizer, error) {
	nbData, err := os.ReadFile(nbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read classifier: %w", err)
	}
	vecData, err := os.ReadFile(vecPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read vectorizer: %w", err)
	}
	nb := NewNaiveBayes()
	if err := gob.NewDecoder(bytes.NewReader(nbData)).Decode(nb); err != nil {
		return nil, nil, fmt.Errorf("decode classifier: %w", err)
	}
	vec := &Vectorizer{}
	if err := gob.NewDecoder(bytes.NewReader(vecData)).Decode(vec); err != nil {
		return nil, nil, fmt.Errorf("decode vectorizer: %w", err)
	}
	return nb, vec, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
