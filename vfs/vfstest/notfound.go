package vfstest

import (
	"os"
	"testing"
	"time"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// TestMethodNotFound checks that every primitive the backend lacks is
// reported as METHOD_NOT_FOUND naming the primitive and the backend.
func TestMethodNotFound(t *testing.T, b vfs.Backend, config Config) {
	name := config.path("absent")
	calls := map[vfs.Op]func() error{
		vfs.OpOpen:     func() error { _, err := vfs.Open(b, name, os.O_RDONLY, 0); return err },
		vfs.OpUnlink:   func() error { return vfs.Unlink(b, name) },
		vfs.OpMkdir:    func() error { return vfs.Mkdir(b, name, 0o755) },
		vfs.OpRmdir:    func() error { return vfs.Rmdir(b, name) },
		vfs.OpChmod:    func() error { return vfs.Chmod(b, name, 0o644) },
		vfs.OpChown:    func() error { return vfs.Chown(b, name, 0, 0) },
		vfs.OpRename:   func() error { return vfs.Rename(b, name, name+"2") },
		vfs.OpStat:     func() error { _, err := vfs.Stat(b, name); return err },
		vfs.OpLstat:    func() error { _, err := vfs.Lstat(b, name); return err },
		vfs.OpScandir:  func() error { _, err := vfs.Scandir(b, name); return err },
		vfs.OpUtime:    func() error { return vfs.Utime(b, name, 0, 0) },
		vfs.OpUtimes:   func() error { return vfs.Utimes(b, name, time.Time{}, time.Time{}) },
		vfs.OpSymlink:  func() error { return vfs.Symlink(b, name, name+"2") },
		vfs.OpLink:     func() error { return vfs.Link(b, name, name+"2") },
		vfs.OpReadlink: func() error { _, err := vfs.Readlink(b, name); return err },
		vfs.OpMknod:    func() error { return vfs.Mknod(b, name, 0, 0) },
	}

	for _, op := range vfs.Ops() {
		call, ok := calls[op]
		if !ok || vfs.Supports(b, op) {
			continue
		}
		config.run(t, "MethodNotFound", op.String(), func(t *testing.T) {
			err := call()
			var vErr errors.Error
			if !errors.As(err, &vErr) || vErr.Code() != errors.CodeMethodNotFound {
				t.Fatalf("%s: got %v, want METHOD_NOT_FOUND", op, err)
			}
			if vErr.Context()["method"] != op.String() {
				t.Errorf("%s: context method %v, want %q", op, vErr.Context()["method"], op.String())
			}
			if vErr.Context()["plugin"] != b.Name() {
				t.Errorf("%s: context plugin %v, want %q", op, vErr.Context()["plugin"], b.Name())
			}
		})
	}
}
