package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStateMissingFile(t *testing.T) {
	state, err := LoadState(filepath.Join(t.TempDir(), "nope.csv"), 0)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.NextID != 1 {
		t.Fatalf("next id = %d, want 1 for a fresh store", state.NextID)
	}
	if len(state.Known) != 0 {
		t.Fatalf("known = %v, want empty", state.Known)
	}
}

func TestLoadStateResumesAfterMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.csv")
	content := `"id","name","type"
"3","Alpha","game"
"17","Beta","game"
"5","Gamma","game"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}

	state, err := LoadState(path, 0)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.NextID != 18 {
		t.Fatalf("next id = %d, want 18 (max id + 1)", state.NextID)
	}
	for _, id := range []int{3, 5, 17} {
		if !state.IsKnown(id) {
			t.Errorf("id %d should be known", id)
		}
	}
	if state.IsKnown(4) {
		t.Errorf("id 4 should not be known")
	}
}

func TestLoadStateStartOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.csv")
	content := `"id","name"
"100","Alpha"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}

	state, err := LoadState(path, 7)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.NextID != 7 {
		t.Fatalf("next id = %d, want the explicit 7", state.NextID)
	}
	if !state.IsKnown(100) {
		t.Fatalf("known ids must still load under an explicit start")
	}
}

func TestLoadStateSkipsDamagedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.csv")
	content := `"id","name"
"2","Alpha"
"","EmptyID"
"-4","Negative"
"abc","NotANumber"
"9","Beta"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}

	state, err := LoadState(path, 0)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.NextID != 10 {
		t.Fatalf("next id = %d, want 10", state.NextID)
	}
	if len(state.Known) != 2 {
		t.Fatalf("known = %v, want exactly {2, 9}", state.Known)
	}
}
