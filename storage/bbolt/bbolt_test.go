package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/jmcleod/pinlock/storage/storagetest"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := NewStoreFromFile(path, nil)
	if err != nil {
		t.Fatalf("could not open store: %v", err)
	}
	return s
}

func TestBBoltStore(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "pinlock.db"))
	defer s.Close()
	storagetest.Run(t, s)
}

func TestBBoltStore_Persistence(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "pinlock.db")

	s := newTestStore(t, path)
	if err := s.Set(ctx, "pin/check", "envelope"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := newTestStore(t, path)
	defer reopened.Close()
	got, err := reopened.Get(ctx, "pin/check")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got != "envelope" {
		t.Errorf("expected %q, got %q", "envelope", got)
	}
}
