package solutionstore

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
	"github.com/pkg/errors"
)

func testTemplateID(b byte) *hashes.Hash {
	var templateID hashes.Hash
	copy(templateID[:], bytes.Repeat([]byte{b}, hashes.HashSize))
	return &templateID
}

func openTestStore(t *testing.T, dataDir string) *Store {
	store, err := Open(dataDir)
	if err != nil {
		t.Fatalf("Open: unexpected error %+v", err)
	}
	return store
}

// TestSolutionPersistence makes sure solutions and progress survive closing
// and reopening the store.
func TestSolutionPersistence(t *testing.T) {
	dataDir := t.TempDir()
	store := openTestStore(t, dataDir)

	solved := testTemplateID(0x01)
	inProgress := testTemplateID(0x02)
	solution := &Solution{Nonce: 1066, Hash: *testTemplateID(0xaa)}

	err := store.PutProgress(solved, &Progress{Start: 0, NextNonce: 500})
	if err != nil {
		t.Fatalf("PutProgress: unexpected error %v", err)
	}
	err = store.PutSolution(solved, solution)
	if err != nil {
		t.Fatalf("PutSolution: unexpected error %v", err)
	}
	progress := &Progress{Start: 0xfffff000, NextNonce: 0x10000}
	err = store.PutProgress(inProgress, progress)
	if err != nil {
		t.Fatalf("PutProgress: unexpected error %v", err)
	}
	err = store.Close()
	if err != nil {
		t.Fatalf("Close: unexpected error %v", err)
	}

	store = openTestStore(t, dataDir)
	defer store.Close()

	got, found, err := store.Solution(solved)
	if err != nil || !found {
		t.Fatalf("Solution: got found %t and error %v, want a solution", found, err)
	}
	if !reflect.DeepEqual(got, solution) {
		t.Errorf("Solution: got %s, want %s", spew.Sdump(got), spew.Sdump(solution))
	}

	_, found, err = store.Progress(solved)
	if err != nil || found {
		t.Errorf("Progress: got found %t and error %v, want the progress of a solved template removed", found, err)
	}

	gotProgress, found, err := store.Progress(inProgress)
	if err != nil || !found {
		t.Fatalf("Progress: got found %t and error %v, want progress", found, err)
	}
	if *gotProgress != *progress {
		t.Errorf("Progress: got %+v, want %+v", gotProgress, progress)
	}

	_, found, err = store.Solution(inProgress)
	if err != nil || found {
		t.Errorf("Solution: got found %t and error %v for an unsolved template", found, err)
	}
}

func TestProgressOverwrite(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	templateID := testTemplateID(0x03)
	for _, progress := range []*Progress{
		{Start: 0, NextNonce: 1},
		{Start: 1100, NextNonce: 1 << 16},
		{Start: 0xfffffff0, NextNonce: 0xffffffff},
	} {
		err := store.PutProgress(templateID, progress)
		if err != nil {
			t.Fatalf("PutProgress: unexpected error %v", err)
		}
		got, found, err := store.Progress(templateID)
		if err != nil || !found {
			t.Fatalf("Progress: got found %t and error %v", found, err)
		}
		if *got != *progress {
			t.Errorf("Progress: got %+v, want %+v", got, progress)
		}
	}
}

func TestDeleteProgress(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	templateID := testTemplateID(0x09)
	err := store.DeleteProgress(templateID)
	if err != nil {
		t.Fatalf("DeleteProgress: unexpected error %v for a template without progress", err)
	}

	err = store.PutProgress(templateID, &Progress{Start: 10, NextNonce: 20})
	if err != nil {
		t.Fatalf("PutProgress: unexpected error %v", err)
	}
	err = store.DeleteProgress(templateID)
	if err != nil {
		t.Fatalf("DeleteProgress: unexpected error %v", err)
	}
	_, found, err := store.Progress(templateID)
	if err != nil || found {
		t.Errorf("Progress: got found %t and error %v, want no progress", found, err)
	}
}

func TestSolutions(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	want := map[hashes.Hash]uint32{
		*testTemplateID(0x04): 4,
		*testTemplateID(0x05): 5,
		*testTemplateID(0x06): 6,
	}
	for templateID, nonce := range want {
		templateID := templateID
		err := store.PutSolution(&templateID, &Solution{Nonce: nonce})
		if err != nil {
			t.Fatalf("PutSolution: unexpected error %v", err)
		}
	}
	// Progress entries must not show up as solutions.
	err := store.PutProgress(testTemplateID(0x07), &Progress{Start: 0, NextNonce: 7})
	if err != nil {
		t.Fatalf("PutProgress: unexpected error %v", err)
	}

	got := make(map[hashes.Hash]uint32)
	err = store.Solutions(func(templateID *hashes.Hash, solution *Solution) bool {
		got[*templateID] = solution.Nonce
		return true
	})
	if err != nil {
		t.Fatalf("Solutions: unexpected error %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Solutions: got %v, want %v", got, want)
	}

	visited := 0
	err = store.Solutions(func(*hashes.Hash, *Solution) bool {
		visited++
		return false
	})
	if err != nil {
		t.Fatalf("Solutions: unexpected error %v", err)
	}
	if visited != 1 {
		t.Errorf("Solutions: visited %d solutions after stopping, want 1", visited)
	}
}

func TestCorruptedValue(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	templateID := testTemplateID(0x08)
	err := store.ldb.Put(key(solutionPrefix, templateID), []byte{0x01, 0x02}, nil)
	if err != nil {
		t.Fatalf("Put: unexpected error %v", err)
	}
	_, _, err = store.Solution(templateID)
	if !errors.Is(err, ErrCorruptedValue) {
		t.Errorf("Solution: got error %v, want %v", err, ErrCorruptedValue)
	}

	// Progress used to be stored without its start.
	err = store.ldb.Put(key(progressPrefix, templateID), []byte{0x01, 0x00, 0x00, 0x00}, nil)
	if err != nil {
		t.Fatalf("Put: unexpected error %v", err)
	}
	_, _, err = store.Progress(templateID)
	if !errors.Is(err, ErrCorruptedValue) {
		t.Errorf("Progress: got error %v, want %v", err, ErrCorruptedValue)
	}
}
