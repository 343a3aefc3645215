package storage

import (
	"bytes"
	"testing"
)

func TestLocal_SaveLoad(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := []byte("png bytes")
	path, err := store.Save("img-1", VariantOriginal, data)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected a path")
	}

	got, err := store.Load("img-1", VariantOriginal)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("loaded data differs from saved data")
	}
}

func TestLocal_Exists(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.Exists("img-1", VariantCropped) {
		t.Error("variant should not exist before save")
	}

	if _, err := store.Save("img-1", VariantCropped, []byte("x")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !store.Exists("img-1", VariantCropped) {
		t.Error("variant should exist after save")
	}
	if store.Exists("img-1", VariantThumbnail) {
		t.Error("other variants should not exist")
	}
}

func TestLocal_Errors(t *testing.T) {
	if _, err := NewLocal(""); err == nil {
		t.Error("expected error for empty root")
	}

	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Save("", VariantOriginal, []byte("x")); err == nil {
		t.Error("expected error for empty image ID")
	}
	if _, err := store.Load("missing", VariantOriginal); err == nil {
		t.Error("expected error for missing variant")
	}
}
