package vfstest

import (
	"bytes"
	"os"
	"testing"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// TestWrite tests creating, truncating and appending to files.
func TestWrite(t *testing.T, b vfs.Backend, config Config) {
	requireOps(t, b, vfs.OpOpen, vfs.OpStat)

	config.run(t, "Write", "Create", func(t *testing.T) {
		name := config.path("create.txt")
		if err := WriteFile(b, name, []byte("hello"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): got error %v", name, err)
		}
		fi, err := vfs.Stat(b, name)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", name, err)
		}
		if fi.Size() != 5 {
			t.Errorf("Stat(%s).Size(): got %d, want 5", name, fi.Size())
		}
	})

	config.run(t, "Write", "Truncate", func(t *testing.T) {
		name := config.path("truncate.txt")
		if err := WriteFile(b, name, []byte("a long first version"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): setup failed: %v", name, err)
		}
		if err := WriteFile(b, name, []byte("short"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): got error %v", name, err)
		}
		data, err := ReadFile(b, name)
		if err != nil {
			t.Fatalf("ReadFile(%s): got error %v", name, err)
		}
		if string(data) != "short" {
			t.Errorf("ReadFile(%s): got %q, want %q", name, data, "short")
		}
	})

	config.run(t, "Write", "Append", func(t *testing.T) {
		name := config.path("append.txt")
		if err := WriteFile(b, name, []byte("head-"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): setup failed: %v", name, err)
		}
		f, err := vfs.Open(b, name, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			t.Fatalf("Open(%s, O_APPEND): got error %v", name, err)
		}
		if _, err := vfs.Write(b, f, []byte("tail")); err != nil {
			t.Fatalf("Write(): got error %v", err)
		}
		if err := vfs.Close(b, f); err != nil {
			t.Fatalf("Close(): got error %v", err)
		}
		data, err := ReadFile(b, name)
		if err != nil {
			t.Fatalf("ReadFile(%s): got error %v", name, err)
		}
		if !bytes.Equal(data, []byte("head-tail")) {
			t.Errorf("ReadFile(%s): got %q, want %q", name, data, "head-tail")
		}
	})

	config.run(t, "Write", "Exclusive", func(t *testing.T) {
		name := config.path("excl.txt")
		if err := WriteFile(b, name, nil, 0o644); err != nil {
			t.Fatalf("WriteFile(%s): setup failed: %v", name, err)
		}
		f, err := vfs.Open(b, name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_ = vfs.Close(b, f)
			t.Fatalf("Open(%s, O_EXCL) on existing file: got nil error", name)
		}
		if errors.GetCode(err) != errors.CodeExist {
			t.Errorf("Open(%s, O_EXCL): got %v, want EXIST", name, err)
		}
	})

	config.run(t, "Write", "MissingParent", func(t *testing.T) {
		if config.ImplicitParentDirs {
			t.Skip("backend creates parents implicitly")
		}
		name := config.path("no/such/dir.txt")
		if err := WriteFile(b, name, []byte("x"), 0o644); err == nil {
			t.Errorf("WriteFile(%s): got nil error, want error", name)
		}
	})
}

// TestManage tests mkdir, rmdir, unlink and rename.
func TestManage(t *testing.T, b vfs.Backend, config Config) {
	requireOps(t, b, vfs.OpOpen, vfs.OpStat, vfs.OpMkdir, vfs.OpUnlink)

	config.run(t, "Manage", "MkdirExisting", func(t *testing.T) {
		dir := config.path("mkdir-twice")
		if err := vfs.Mkdir(b, dir, 0o755); err != nil {
			t.Fatalf("Mkdir(%s): got error %v", dir, err)
		}
		if err := vfs.Mkdir(b, dir, 0o755); errors.GetCode(err) != errors.CodeExist {
			t.Errorf("Mkdir(%s) twice: got %v, want EXIST", dir, err)
		}
	})

	config.run(t, "Manage", "Unlink", func(t *testing.T) {
		name := config.path("unlink.txt")
		if err := WriteFile(b, name, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): setup failed: %v", name, err)
		}
		if err := vfs.Unlink(b, name); err != nil {
			t.Fatalf("Unlink(%s): got error %v", name, err)
		}
		if _, err := vfs.Stat(b, name); errors.GetCode(err) != errors.CodeNotExist {
			t.Errorf("Stat(%s) after unlink: got %v, want NOT_EXIST", name, err)
		}

		err := vfs.Unlink(b, name)
		if config.IdempotentDelete {
			if err != nil {
				t.Errorf("Unlink(%s) twice: got %v, want nil", name, err)
			}
		} else if errors.GetCode(err) != errors.CodeNotExist {
			t.Errorf("Unlink(%s) twice: got %v, want NOT_EXIST", name, err)
		}
	})

	config.run(t, "Manage", "Rmdir", func(t *testing.T) {
		if !vfs.Supports(b, vfs.OpRmdir) {
			t.Skip("rmdir not supported")
		}
		dir := config.path("rmdir")
		if err := vfs.Mkdir(b, dir, 0o755); err != nil {
			t.Fatalf("Mkdir(%s): setup failed: %v", dir, err)
		}
		if err := WriteFile(b, dir+"/f", []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s/f): setup failed: %v", dir, err)
		}
		if err := vfs.Rmdir(b, dir); err == nil {
			t.Errorf("Rmdir(%s) on non-empty directory: got nil error", dir)
		}
		if err := vfs.Unlink(b, dir+"/f"); err != nil {
			t.Fatalf("Unlink(%s/f): got error %v", dir, err)
		}
		if err := vfs.Rmdir(b, dir); err != nil {
			t.Errorf("Rmdir(%s): got error %v", dir, err)
		}
	})

	config.run(t, "Manage", "Rename", func(t *testing.T) {
		if !vfs.Supports(b, vfs.OpRename) {
			t.Skip("rename not supported")
		}
		from, to := config.path("rename-from.txt"), config.path("rename-to.txt")
		if err := WriteFile(b, from, []byte("moved"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): setup failed: %v", from, err)
		}
		if err := vfs.Rename(b, from, to); err != nil {
			t.Fatalf("Rename(%s, %s): got error %v", from, to, err)
		}
		if _, err := vfs.Stat(b, from); errors.GetCode(err) != errors.CodeNotExist {
			t.Errorf("Stat(%s) after rename: got %v, want NOT_EXIST", from, err)
		}
		data, err := ReadFile(b, to)
		if err != nil || string(data) != "moved" {
			t.Errorf("ReadFile(%s): got (%q, %v), want (%q, nil)", to, data, err, "moved")
		}
	})

	config.run(t, "Manage", "RenameDir", func(t *testing.T) {
		if !vfs.Supports(b, vfs.OpRename) {
			t.Skip("rename not supported")
		}
		from, to := config.path("rdir-from"), config.path("rdir-to")
		if err := vfs.Mkdir(b, from, 0o755); err != nil {
			t.Fatalf("Mkdir(%s): setup failed: %v", from, err)
		}
		if err := WriteFile(b, from+"/inner.txt", []byte("inner"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s/inner.txt): setup failed: %v", from, err)
		}
		if err := vfs.Rename(b, from, to); err != nil {
			t.Fatalf("Rename(%s, %s): got error %v", from, to, err)
		}
		data, err := ReadFile(b, to+"/inner.txt")
		if err != nil || string(data) != "inner" {
			t.Errorf("ReadFile(%s/inner.txt): got (%q, %v), want (%q, nil)", to, data, err, "inner")
		}
	})
}
