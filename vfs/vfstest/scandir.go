package vfstest

import (
	"reflect"
	"testing"

	"github.com/Nazg-Gul/fm/vfs"
)

// TestScandir tests directory listing order, entry types and release.
func TestScandir(t *testing.T, b vfs.Backend, config Config) {
	requireOps(t, b, vfs.OpOpen, vfs.OpScandir, vfs.OpMkdir)

	dir := config.path("list")
	if err := vfs.Mkdir(b, dir, 0o755); err != nil {
		t.Fatalf("Mkdir(%s): setup failed: %v", dir, err)
	}
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		if err := WriteFile(b, dir+"/"+name, []byte(name), 0o644); err != nil {
			t.Fatalf("WriteFile(%s/%s): setup failed: %v", dir, name, err)
		}
	}
	if err := vfs.Mkdir(b, dir+"/sub", 0o755); err != nil {
		t.Fatalf("Mkdir(%s/sub): setup failed: %v", dir, err)
	}
	if config.VirtualDirectories {
		if err := WriteFile(b, dir+"/sub/keep", nil, 0o644); err != nil {
			t.Fatalf("WriteFile(%s/sub/keep): setup failed: %v", dir, err)
		}
	}

	config.run(t, "Scandir", "Sorted", func(t *testing.T) {
		names, err := Names(b, dir)
		if err != nil {
			t.Fatalf("Scandir(%s): got error %v", dir, err)
		}
		want := []string{"a.txt", "b.txt", "c.txt", "sub"}
		if !reflect.DeepEqual(names, want) {
			t.Errorf("Scandir(%s): got %v, want %v", dir, names, want)
		}
	})

	config.run(t, "Scandir", "Types", func(t *testing.T) {
		batch, err := vfs.Scandir(b, dir)
		if err != nil {
			t.Fatalf("Scandir(%s): got error %v", dir, err)
		}
		defer batch.Release()

		for _, e := range batch.Entries() {
			wantDir := e.Name == "sub"
			if e.IsDir() != wantDir {
				t.Errorf("entry %q IsDir(): got %v, want %v", e.Name, e.IsDir(), wantDir)
			}
			if e.Stat == nil || e.Lstat == nil {
				t.Errorf("entry %q: missing metadata", e.Name)
			}
		}
	})

	config.run(t, "Scandir", "Release", func(t *testing.T) {
		batch, err := vfs.Scandir(b, dir)
		if err != nil {
			t.Fatalf("Scandir(%s): got error %v", dir, err)
		}
		batch.Entries()[0].Release()
		batch.Release()
		for _, e := range batch.Entries() {
			if !e.Released() {
				t.Errorf("entry %q not released", e.Name)
			}
		}
	})

	config.run(t, "Scandir", "NotDir", func(t *testing.T) {
		if _, err := vfs.Scandir(b, dir+"/a.txt"); err == nil {
			t.Errorf("Scandir(%s/a.txt): got nil error, want error", dir)
		}
	})
}
