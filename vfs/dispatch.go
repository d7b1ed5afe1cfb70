package vfs

import (
	"io"
	"io/fs"
	"time"

	"github.com/Nazg-Gul/fm/errors"
)

// fail converts a backend error into a coded error carrying the primitive,
// the backend name and the path.
func fail(b Backend, op Op, name string, err error) error {
	return errors.WithContextMap(errors.Translate(err), map[string]interface{}{
		"method": op.String(),
		"plugin": b.Name(),
		"path":   name,
	})
}

func missing(b Backend, op Op) error {
	return errors.MethodNotFound(op.String(), b.Name())
}

// Open opens name on b.
func Open(b Backend, name string, flag int, perm fs.FileMode) (File, error) {
	o, ok := b.(OpenFS)
	if !ok {
		return nil, missing(b, OpOpen)
	}
	f, err := o.Open(name, flag, perm)
	if err != nil {
		return nil, fail(b, OpOpen, name, err)
	}
	return f, nil
}

// Close closes a handle obtained from b.
func Close(b Backend, f File) error {
	if err := f.Close(); err != nil {
		return fail(b, OpClose, f.Name(), err)
	}
	return nil
}

// Read reads from f. io.EOF is returned unchanged.
func Read(b Backend, f File, p []byte) (int, error) {
	r, ok := f.(io.Reader)
	if !ok {
		return 0, missing(b, OpRead)
	}
	n, err := r.Read(p)
	if err != nil && err != io.EOF {
		return n, fail(b, OpRead, f.Name(), err)
	}
	return n, err
}

// Write writes p to f. A short write without an error is reported as
// io.ErrShortWrite.
func Write(b Backend, f File, p []byte) (int, error) {
	w, ok := f.(io.Writer)
	if !ok {
		return 0, missing(b, OpWrite)
	}
	n, err := w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, fail(b, OpWrite, f.Name(), err)
	}
	return n, nil
}

// Lseek repositions f.
func Lseek(b Backend, f File, offset int64, whence int) (int64, error) {
	s, ok := f.(io.Seeker)
	if !ok {
		return 0, missing(b, OpLseek)
	}
	pos, err := s.Seek(offset, whence)
	if err != nil {
		return pos, fail(b, OpLseek, f.Name(), err)
	}
	return pos, nil
}

func Unlink(b Backend, name string) error {
	u, ok := b.(UnlinkFS)
	if !ok {
		return missing(b, OpUnlink)
	}
	if err := u.Unlink(name); err != nil {
		return fail(b, OpUnlink, name, err)
	}
	return nil
}

func Mkdir(b Backend, name string, perm fs.FileMode) error {
	m, ok := b.(MkdirFS)
	if !ok {
		return missing(b, OpMkdir)
	}
	if err := m.Mkdir(name, perm); err != nil {
		return fail(b, OpMkdir, name, err)
	}
	return nil
}

func Rmdir(b Backend, name string) error {
	r, ok := b.(RmdirFS)
	if !ok {
		return missing(b, OpRmdir)
	}
	if err := r.Rmdir(name); err != nil {
		return fail(b, OpRmdir, name, err)
	}
	return nil
}

func Chmod(b Backend, name string, mode fs.FileMode) error {
	c, ok := b.(ChmodFS)
	if !ok {
		return missing(b, OpChmod)
	}
	if err := c.Chmod(name, mode); err != nil {
		return fail(b, OpChmod, name, err)
	}
	return nil
}

func Chown(b Backend, name string, uid, gid int) error {
	c, ok := b.(ChownFS)
	if !ok {
		return missing(b, OpChown)
	}
	if err := c.Chown(name, uid, gid); err != nil {
		return fail(b, OpChown, name, err)
	}
	return nil
}

func Rename(b Backend, oldname, newname string) error {
	r, ok := b.(RenameFS)
	if !ok {
		return missing(b, OpRename)
	}
	if err := r.Rename(oldname, newname); err != nil {
		return fail(b, OpRename, oldname, err)
	}
	return nil
}

func Stat(b Backend, name string) (fs.FileInfo, error) {
	s, ok := b.(StatFS)
	if !ok {
		return nil, missing(b, OpStat)
	}
	fi, err := s.Stat(name)
	if err != nil {
		return nil, fail(b, OpStat, name, err)
	}
	return fi, nil
}

func Lstat(b Backend, name string) (fs.FileInfo, error) {
	l, ok := b.(LstatFS)
	if !ok {
		return nil, missing(b, OpLstat)
	}
	fi, err := l.Lstat(name)
	if err != nil {
		return nil, fail(b, OpLstat, name, err)
	}
	return fi, nil
}

// Scandir lists name. The batch is sorted by name and never contains "."
// or "..". The caller owns the batch and must release it.
func Scandir(b Backend, name string) (*Batch, error) {
	s, ok := b.(ScandirFS)
	if !ok {
		return nil, missing(b, OpScandir)
	}
	entries, err := s.Scandir(name)
	if err != nil {
		NewBatch(entries).Release()
		return nil, fail(b, OpScandir, name, err)
	}
	return NewBatch(entries), nil
}

func Utime(b Backend, name string, atime, mtime int64) error {
	u, ok := b.(UtimeFS)
	if !ok {
		return missing(b, OpUtime)
	}
	if err := u.Utime(name, atime, mtime); err != nil {
		return fail(b, OpUtime, name, err)
	}
	return nil
}

func Utimes(b Backend, name string, atime, mtime time.Time) error {
	u, ok := b.(UtimesFS)
	if !ok {
		return missing(b, OpUtimes)
	}
	if err := u.Utimes(name, atime, mtime); err != nil {
		return fail(b, OpUtimes, name, err)
	}
	return nil
}

func Symlink(b Backend, target, name string) error {
	s, ok := b.(SymlinkFS)
	if !ok {
		return missing(b, OpSymlink)
	}
	if err := s.Symlink(target, name); err != nil {
		return fail(b, OpSymlink, name, err)
	}
	return nil
}

func Link(b Backend, oldname, newname string) error {
	l, ok := b.(LinkFS)
	if !ok {
		return missing(b, OpLink)
	}
	if err := l.Link(oldname, newname); err != nil {
		return fail(b, OpLink, newname, err)
	}
	return nil
}

func Readlink(b Backend, name string) (string, error) {
	r, ok := b.(ReadlinkFS)
	if !ok {
		return "", missing(b, OpReadlink)
	}
	target, err := r.Readlink(name)
	if err != nil {
		return "", fail(b, OpReadlink, name, err)
	}
	return target, nil
}

func Mknod(b Backend, name string, mode fs.FileMode, dev uint64) error {
	m, ok := b.(MknodFS)
	if !ok {
		return missing(b, OpMknod)
	}
	if err := m.Mknod(name, mode, dev); err != nil {
		return fail(b, OpMknod, name, err)
	}
	return nil
}

// MoveStrategy asks b how to move src to dst. Backends without the
// primitive get MoveRename when they can rename and MoveCopy otherwise.
func MoveStrategy(b Backend, src, dst string) Strategy {
	if m, ok := b.(MoveStrategyFS); ok {
		return m.MoveStrategy(src, dst)
	}
	if _, ok := b.(RenameFS); ok {
		return MoveRename
	}
	return MoveCopy
}
