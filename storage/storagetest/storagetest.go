// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jmcleod/pinlock/storage"
)

// Run exercises s against the storage.Store contract. s must be empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := t.Context()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetGet", func(t *testing.T) {
		if err := s.Set(ctx, "pin/has_pin", "true"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := s.Get(ctx, "pin/has_pin")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != "true" {
			t.Errorf("expected %q, got %q", "true", got)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "state/a", "v1"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := s.Set(ctx, "state/a", "v2"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, _ := s.Get(ctx, "state/a")
		if got != "v2" {
			t.Errorf("expected v2, got %q", got)
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		if err := s.Set(ctx, "state/empty", ""); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := s.Get(ctx, "state/empty")
		if err != nil || got != "" {
			t.Errorf("expected empty value, got %q, %v", got, err)
		}
	})

	t.Run("InvalidKey", func(t *testing.T) {
		if err := s.Set(ctx, "", "x"); !errors.Is(err, storage.ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		for _, k := range []string{"state/c", "state/b", "statex", "pin/salt"} {
			if err := s.Set(ctx, k, "x"); err != nil {
				t.Fatalf("Set %s failed: %v", k, err)
			}
		}
		keys, err := s.Keys(ctx, "state/")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		want := []string{"state/a", "state/b", "state/c", "state/empty"}
		if !slices.Equal(keys, want) {
			t.Errorf("expected %v, got %v", want, keys)
		}

		none, err := s.Keys(ctx, "nothing/")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no keys, got %v", none)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete(ctx, "statex"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, "statex"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "statex"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("BatchCommit", func(t *testing.T) {
		err := s.Batch(ctx, func(tx storage.BatchTx) error {
			if err := tx.Set("batch/a", "1"); err != nil {
				return err
			}
			if err := tx.Set("batch/b", "2"); err != nil {
				return err
			}
			return tx.Delete("batch/a")
		})
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		keys, _ := s.Keys(ctx, "batch/")
		if !slices.Equal(keys, []string{"batch/b"}) {
			t.Errorf("expected [batch/b], got %v", keys)
		}
	})

	t.Run("BatchRollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.Batch(ctx, func(tx storage.BatchTx) error {
			if err := tx.Set("batch/c", "3"); err != nil {
				return err
			}
			if err := tx.Delete("batch/b"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected batch error to propagate, got %v", err)
		}
		if _, err := s.Get(ctx, "batch/c"); !errors.Is(err, storage.ErrNotFound) {
			t.Error("write inside failed batch should be rolled back")
		}
		if v, err := s.Get(ctx, "batch/b"); err != nil || v != "2" {
			t.Errorf("delete inside failed batch should be rolled back, got %q, %v", v, err)
		}
	})

	t.Run("BatchDeleteMissing", func(t *testing.T) {
		err := s.Batch(ctx, func(tx storage.BatchTx) error {
			return tx.Delete("batch/missing")
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.Set(cctx, "state/late", "x"); err == nil {
			t.Error("expected error with canceled context")
		}
	})
}
