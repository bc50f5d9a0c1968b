package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	key := Key{"github", "kitsuyui", "rust-codecov", "main", "c1"}
	payload := []byte(`{"name":"main"}`)

	if err := store.Save(key, payload); err != nil {
		t.Fatalf("save error: %v", err)
	}

	got, err := store.Load(key)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("cached payload mismatch: %s", string(got))
	}
}

func TestStoreLayoutOnDisk(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root, "data.json")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Save(Key{"svc", "u", "r", "main", "c2"}, []byte("x")); err != nil {
		t.Fatalf("save error: %v", err)
	}

	want := filepath.Join(root, "svc", "u", "r", "main", "c2", "data.json")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected entry at %s: %v", want, err)
	}
	if string(data) != "x" {
		t.Fatalf("unexpected content %q", string(data))
	}

	entries, err := os.ReadDir(filepath.Dir(want))
	if err != nil {
		t.Fatalf("read dir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files should not remain, got %d entries", len(entries))
	}
}

func TestNewStoreDoesNotCreateRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "lazy", "root")
	store, err := NewStore(root, "")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("root should not exist before first save, stat err=%v", err)
	}
	if store.Has(Key{"a"}) {
		t.Fatalf("empty store should not report entries")
	}
	if err := store.Save(Key{"a"}, []byte("1")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a", DefaultFileName)); err != nil {
		t.Fatalf("default file name should be used: %v", err)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)
	key := Key{"github", "u", "r", "main", "missing"}

	_, err := store.Load(key)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", KindOf(err))
	}
	if store.Has(key) {
		t.Fatalf("has should be false for missing key")
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	key := Key{"cache", "remove"}
	if err := store.Save(key, []byte("data")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if !store.Has(key) {
		t.Fatalf("has should be true after save")
	}
	if err := store.Remove(key); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if store.Has(key) {
		t.Fatalf("has should be false after remove")
	}
	if _, err := store.Load(key); !IsNotFound(err) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if err := store.Remove(key); !IsNotFound(err) {
		t.Fatalf("second remove should report not found, got %v", err)
	}
}

func TestStoreRemoveKeepsParentDirectories(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root, "data.json")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	key := Key{"a", "b"}
	if err := store.Save(key, []byte("data")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if err := store.Remove(key); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if info, err := os.Stat(filepath.Join(root, "a", "b")); err != nil || !info.IsDir() {
		t.Fatalf("entry directory should be kept, err=%v", err)
	}
}

func TestStoreOverwriteKeepsLatestOnly(t *testing.T) {
	store := newTestStore(t)
	key := Key{"k"}
	for _, payload := range []string{"first-longer-payload", "second", "second"} {
		if err := store.Save(key, []byte(payload)); err != nil {
			t.Fatalf("save error: %v", err)
		}
	}
	got, err := store.Load(key)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected latest payload only, got %q", string(got))
	}
}

func TestStoreKeyOrderMatters(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(Key{"a", "b"}, []byte("ab")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if store.Has(Key{"b", "a"}) {
		t.Fatalf("reversed key must be a distinct entry")
	}
	if err := store.Save(Key{"b", "a"}, []byte("ba")); err != nil {
		t.Fatalf("save error: %v", err)
	}

	ab, _ := store.Load(Key{"a", "b"})
	ba, _ := store.Load(Key{"b", "a"})
	if string(ab) != "ab" || string(ba) != "ba" {
		t.Fatalf("entries should be independent, got %q and %q", ab, ba)
	}
}

func TestStorePrefixKeyIsIndependent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(Key{"a", "b"}, []byte("deep")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if store.Has(Key{"a"}) {
		t.Fatalf("a parent key should not be reported as present")
	}
	if err := store.Save(Key{"a"}, []byte("shallow")); err != nil {
		t.Fatalf("save error: %v", err)
	}
	deep, err := store.Load(Key{"a", "b"})
	if err != nil || string(deep) != "deep" {
		t.Fatalf("nested entry should survive, got %q err=%v", deep, err)
	}
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t)
	key := Key{"svc", "dir"}

	fs, ok := store.(*fileStore)
	if !ok {
		t.Fatalf("unexpected store type %T", store)
	}

	filePath, err := fs.entryPath(key)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if err := os.MkdirAll(filePath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := store.Load(key); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
	if store.Has(key) {
		t.Fatalf("has should ignore directories")
	}
	if err := store.Remove(key); !IsNotFound(err) {
		t.Fatalf("remove should not delete directories, got %v", err)
	}
}

func TestStoreFileInPathIsNotFound(t *testing.T) {
	store := newTestStore(t)
	fs := store.(*fileStore)
	if err := os.MkdirAll(fs.root, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(fs.root, "blocker"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}

	if _, err := store.Load(Key{"blocker", "child"}); !IsNotFound(err) {
		t.Fatalf("expected not found when a path component is a file, got %v", err)
	}
	err := store.Save(Key{"blocker", "child"}, []byte("x"))
	if err == nil || KindOf(err) != KindIO {
		t.Fatalf("expected io failure, got %v", err)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	store := newTestStore(t)
	cases := map[string]Key{
		"empty key":     {},
		"empty segment": {"a", ""},
		"separator":     {"feature/x"},
		"backslash":     {`a\b`},
		"dot":           {"."},
		"dotdot":        {"a", ".."},
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			err := store.Save(key, []byte("x"))
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
			if KindOf(err) != KindIO {
				t.Fatalf("invalid key should be an io failure, got %v", KindOf(err))
			}
			if _, err := store.Load(key); KindOf(err) != KindIO {
				t.Fatalf("load should fail with io kind, got %v", err)
			}
			if store.Has(key) {
				t.Fatalf("has should be false for invalid key")
			}
		})
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore("", "data.json"); err == nil {
		t.Fatalf("empty root should be rejected")
	}
	if _, err := NewStore(t.TempDir(), "nested/data.json"); err == nil {
		t.Fatalf("file name with separator should be rejected")
	}
}

func TestKeyEqual(t *testing.T) {
	if !(Key{"a", "b"}).Equal(Key{"a", "b"}) {
		t.Fatalf("identical keys should be equal")
	}
	if (Key{"a", "b"}).Equal(Key{"b", "a"}) {
		t.Fatalf("order should matter")
	}
	if (Key{"a"}).Equal(Key{"a", "b"}) {
		t.Fatalf("length should matter")
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "cache"), DefaultFileName)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
