package vfstest

import (
	"testing"

	"github.com/Nazg-Gul/fm/vfs"
)

// TestSymlink tests symlink, readlink and lstat.
func TestSymlink(t *testing.T, b vfs.Backend, config Config) {
	requireOps(t, b, vfs.OpOpen, vfs.OpSymlink, vfs.OpReadlink, vfs.OpLstat, vfs.OpStat)

	target := config.path("target.txt")
	link := config.path("link.txt")
	if err := WriteFile(b, target, []byte("target content"), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): setup failed: %v", target, err)
	}
	if err := vfs.Symlink(b, target, link); err != nil {
		t.Fatalf("Symlink(%s, %s): got error %v", target, link, err)
	}

	config.run(t, "Symlink", "Readlink", func(t *testing.T) {
		got, err := vfs.Readlink(b, link)
		if err != nil {
			t.Fatalf("Readlink(%s): got error %v", link, err)
		}
		if got != target {
			t.Errorf("Readlink(%s): got %q, want %q", link, got, target)
		}
		if _, err := vfs.Readlink(b, target); err == nil {
			t.Errorf("Readlink(%s) on regular file: got nil error", target)
		}
	})

	config.run(t, "Symlink", "Lstat", func(t *testing.T) {
		fi, err := vfs.Lstat(b, link)
		if err != nil {
			t.Fatalf("Lstat(%s): got error %v", link, err)
		}
		if vfs.TypeOf(fi.Mode()) != vfs.EntrySymlink {
			t.Errorf("Lstat(%s): got mode %v, want symlink", link, fi.Mode())
		}
		fi, err = vfs.Stat(b, link)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", link, err)
		}
		if !fi.Mode().IsRegular() {
			t.Errorf("Stat(%s): got mode %v, want regular file", link, fi.Mode())
		}
	})

	config.run(t, "Symlink", "ReadThrough", func(t *testing.T) {
		data, err := ReadFile(b, link)
		if err != nil || string(data) != "target content" {
			t.Errorf("ReadFile(%s): got (%q, %v), want (%q, nil)", link, data, err, "target content")
		}
	})
}
