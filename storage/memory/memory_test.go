package memory

import (
	"testing"

	"github.com/jmcleod/pinlock/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := t.Context()
	a := NewStore()
	b := NewStore()

	if err := a.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := b.Get(ctx, "k"); err == nil {
		t.Error("stores should not share data")
	}
}
