package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"invoicely/backend/internal/store"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSaveLoadAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoicely.db")
	ctx := context.Background()

	first := openTestStore(t, path)
	if _, err := first.Load(ctx, store.KeyProducts); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := first.Save(ctx,
		store.Entry{Key: store.KeyProducts, Value: []byte(`[{"id":"p1"}]`)},
		store.Entry{Key: store.KeyInvoices, Value: []byte(`[]`)},
	); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Save(ctx, store.Entry{Key: store.KeyProducts, Value: []byte(`[{"id":"p2"}]`)}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = first.Close()

	second := openTestStore(t, path)
	raw, err := second.Load(ctx, store.KeyProducts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(raw) != `[{"id":"p2"}]` {
		t.Fatalf("unexpected products document %s", raw)
	}
}

func TestSaveIsAllOrNothing(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "invoicely.db"))
	ctx := context.Background()

	err := s.Save(ctx,
		store.Entry{Key: store.KeyUnits, Value: []byte(`[]`)},
		store.Entry{Key: "", Value: []byte(`[]`)},
	)
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := s.Load(ctx, store.KeyUnits); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected nothing written, got %v", err)
	}
}
