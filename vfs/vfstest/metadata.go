package vfstest

import (
	"io/fs"
	"testing"
	"time"

	"github.com/Nazg-Gul/fm/vfs"
)

// TestMetadata tests chmod, chown and the time setters the backend has.
func TestMetadata(t *testing.T, b vfs.Backend, config Config) {
	if !vfs.Supports(b, vfs.OpChmod) && !vfs.Supports(b, vfs.OpUtimes) && !vfs.Supports(b, vfs.OpUtime) {
		t.Skip("no metadata primitives")
	}
	requireOps(t, b, vfs.OpOpen, vfs.OpStat)

	name := config.path("meta.txt")
	if err := WriteFile(b, name, []byte("meta"), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): setup failed: %v", name, err)
	}

	config.run(t, "Metadata", "Chmod", func(t *testing.T) {
		if !vfs.Supports(b, vfs.OpChmod) {
			t.Skip("chmod not supported")
		}
		if err := vfs.Chmod(b, name, 0o600); err != nil {
			t.Fatalf("Chmod(%s, 0600): got error %v", name, err)
		}
		fi, err := vfs.Stat(b, name)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", name, err)
		}
		if got := fi.Mode().Perm(); got != fs.FileMode(0o600) {
			t.Errorf("Stat(%s).Mode().Perm(): got %o, want %o", name, got, 0o600)
		}
	})

	config.run(t, "Metadata", "Utimes", func(t *testing.T) {
		mtime := time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)
		var err error
		switch {
		case vfs.Supports(b, vfs.OpUtimes):
			err = vfs.Utimes(b, name, mtime, mtime)
		case vfs.Supports(b, vfs.OpUtime):
			err = vfs.Utime(b, name, mtime.Unix(), mtime.Unix())
		}
		if err != nil {
			t.Fatalf("Utimes(%s): got error %v", name, err)
		}
		fi, err := vfs.Stat(b, name)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", name, err)
		}
		if !fi.ModTime().Equal(mtime) {
			t.Errorf("Stat(%s).ModTime(): got %v, want %v", name, fi.ModTime(), mtime)
		}
	})
}
