package sentiment

import (
	"os"
	"path/filepath"
	"testing"
)

func trainedArtifacts(t *testing.T) (*Vectorizer, *NaiveBayes) {
	t.Helper()
	vec := NewVectorizer(English)
	if err := vec.Fit(fitDocs); err != nil {
		t.Fatalf("Fit vectorizer: %v", err)
	}
	vectors := make([]map[int]float64, len(fitDocs))
	for i, doc := range fitDocs {
		v, err := vec.Transform(doc)
		if err != nil {
			t.Fatalf("Transform: %v", err)
		}
		vectors[i] = v
	}
	nb := NewNaiveBayes()
	if err := nb.Fit(vectors, []string{"2", "2", "0", "0"}, vec.NumFeatures()); err != nil {
		t.Fatalf("Fit model: %v", err)
	}
	return vec, nb
}

func TestModelStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewModelStore(dir, nil, nil)
	vec, nb := trainedArtifacts(t)

	if err := store.Save(vec, nb, English); err != nil {
		t.Fatalf("Save: %v", err)
	}

	gotVec, gotNB, found, err := store.Load(English)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("Load did not find freshly saved artifacts")
	}
	if gotVec.NumFeatures() != vec.NumFeatures() {
		t.Errorf("loaded vocabulary size %d, want %d", gotVec.NumFeatures(), vec.NumFeatures())
	}
	if len(gotNB.Classes) != len(nb.Classes) {
		t.Errorf("loaded class count %d, want %d", len(gotNB.Classes), len(nb.Classes))
	}
}

func TestModelStoreRefusesIncompleteModel(t *testing.T) {
	store := NewModelStore(t.TempDir(), nil, nil)
	if err := store.Save(NewVectorizer(English), NewNaiveBayes(), English); err == nil {
		t.Error("Save of unfitted artifacts did not fail")
	}
}

func TestModelStoreMissingCompanionFile(t *testing.T) {
	dir := t.TempDir()
	store := NewModelStore(dir, nil, nil)
	vec, nb := trainedArtifacts(t)
	if err := store.Save(vec, nb, English); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A location holding only one of the two files must be treated as
	// absent, not as an error.
	_, vecName := artifactNames(English)
	if err := os.Remove(filepath.Join(dir, vecName)); err != nil {
		t.Fatalf("remove vectorizer artifact: %v", err)
	}
	_, _, found, err := store.Load(English)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("Load reported found with a missing companion file")
	}
}

func TestModelStoreNothingSaved(t *testing.T) {
	store := NewModelStore(t.TempDir(), []string{t.TempDir()}, nil)
	_, _, found, err := store.Load(Vietnamese)
	if err != nil {
		t.Fatalf("Load on empty store: %v", err)
	}
	if found {
		t.Error("Load reported found on an empty store")
	}
}

func TestModelStoreFallbackSearch(t *testing.T) {
	canonical := t.TempDir()
	fallback := t.TempDir()

	writer := NewModelStore(fallback, nil, nil)
	vec, nb := trainedArtifacts(t)
	if err := writer.Save(vec, nb, English); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reader := NewModelStore(canonical, []string{fallback}, nil)
	_, _, found, err := reader.Load(English)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Error("Load did not search the fallback directory")
	}
}

func TestModelStoreLegacyNames(t *testing.T) {
	dir := t.TempDir()
	store := NewModelStore(dir, nil, nil)
	vec, nb := trainedArtifacts(t)
	if err := store.Save(vec, nb, English); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Rename the artifacts to the unsuffixed pre-multilingual layout; Load
	// must still find them, after the per-language candidates.
	nbName, vecName := artifactNames(English)
	legacyNB, legacyVec := legacyArtifactNames()
	if err := os.Rename(filepath.Join(dir, nbName), filepath.Join(dir, legacyNB)); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(filepath.Join(dir, vecName), filepath.Join(dir, legacyVec)); err != nil {
		t.Fatal(err)
	}

	_, _, found, err := store.Load(English)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Error("Load did not fall back to legacy artifact names")
	}
}

func TestModelStoreCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	store := NewModelStore(dir, nil, nil)
	nbName, vecName := artifactNames(English)
	for _, name := range []string{nbName, vecName} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("not gob data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, _, err := store.Load(English); err == nil {
		t.Error("Load of corrupt artifacts did not fail")
	}
}

func TestModelStoreSaveDoesNotCorruptPrevious(t *testing.T) {
	dir := t.TempDir()
	store := NewModelStore(dir, nil, nil)
	vec, nb := trainedArtifacts(t)
	if err := store.Save(vec, nb, English); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A refused save must leave the earlier artifacts loadable.
	if err := store.Save(NewVectorizer(English), NewNaiveBayes(), English); err == nil {
		t.Fatal("Save of unfitted artifacts did not fail")
	}
	_, _, found, err := store.Load(English)
	if err != nil || !found {
		t.Errorf("previous artifacts unusable after failed save: found=%v err=%v", found, err)
	}
}
