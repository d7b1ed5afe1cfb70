package billyfs

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/Nazg-Gul/fm/vfs"
)

// Backend adapts a billy.Filesystem to the VFS capability interfaces.
type Backend struct {
	name string
	bfs  billy.Filesystem
}

// MetadataBackend is a Backend that can also change modes, owners and
// times.
type MetadataBackend struct {
	*Backend
	change billy.Change
}

// Option configures backend creation.
type Option func(*config)

type config struct {
	name string
}

// WithName overrides the backend name.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// New wraps bfs. The result is a *MetadataBackend when bfs implements
// billy.Change and a *Backend otherwise.
func New(name string, bfs billy.Filesystem) vfs.Backend {
	b := &Backend{name: name, bfs: bfs}
	if c, ok := bfs.(billy.Change); ok {
		return &MetadataBackend{Backend: b, change: c}
	}
	return b
}

// NewLocal creates the local backend rooted at the filesystem root ("/").
func NewLocal(opts ...Option) *MetadataBackend {
	cfg := apply("localfs", opts)
	bfs := osfs.New("/")

	var change billy.Change = osChange{}
	if c, ok := bfs.(billy.Change); ok {
		change = c
	}
	return &MetadataBackend{Backend: &Backend{name: cfg.name, bfs: bfs}, change: change}
}

// NewMemory creates an empty in-memory backend.
func NewMemory(opts ...Option) vfs.Backend {
	cfg := apply("memfs", opts)
	return New(cfg.name, memfs.New())
}

func apply(name string, opts []Option) config {
	cfg := config{name: name}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (b *Backend) Name() string { return b.name }

// Unwrap returns the underlying billy.Filesystem.
func (b *Backend) Unwrap() billy.Filesystem {
	return b.bfs
}

// normalize converts paths to use forward slashes consistently. An empty
// path is the root.
func normalize(name string) string {
	if name == "" {
		return "/"
	}
	return filepath.ToSlash(filepath.Clean(name))
}

func pathErr(op, name string, err error) error {
	return &fs.PathError{Op: op, Path: name, Err: err}
}

func (b *Backend) Open(name string, flag int, perm fs.FileMode) (vfs.File, error) {
	name = normalize(name)
	if flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0 {
		if _, err := b.bfs.Lstat(name); err == nil {
			return nil, pathErr("open", name, fs.ErrExist)
		}
	}
	f, err := b.bfs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &File{file: f, name: name}, nil
}

// Unlink removes a non-directory.
func (b *Backend) Unlink(name string) error {
	name = normalize(name)
	fi, err := b.bfs.Lstat(name)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return pathErr("unlink", name, syscall.EISDIR)
	}
	return b.bfs.Remove(name)
}

// Mkdir creates one directory. Unlike MkdirAll, it fails if the directory
// exists or its parent does not.
func (b *Backend) Mkdir(name string, perm fs.FileMode) error {
	name = normalize(name)
	if _, err := b.bfs.Lstat(name); err == nil {
		return pathErr("mkdir", name, fs.ErrExist)
	}
	if parent := path.Dir(name); parent != "." && parent != "/" {
		fi, err := b.bfs.Stat(parent)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return pathErr("mkdir", name, syscall.ENOTDIR)
		}
	}
	return b.bfs.MkdirAll(name, perm)
}

// Rmdir removes an empty directory.
func (b *Backend) Rmdir(name string) error {
	name = normalize(name)
	fi, err := b.bfs.Lstat(name)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return pathErr("rmdir", name, syscall.ENOTDIR)
	}
	children, err := b.bfs.ReadDir(name)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return pathErr("rmdir", name, syscall.ENOTEMPTY)
	}
	return b.bfs.Remove(name)
}

func (b *Backend) Rename(oldname, newname string) error {
	return b.bfs.Rename(normalize(oldname), normalize(newname))
}

func (b *Backend) Stat(name string) (fs.FileInfo, error) {
	fi, err := b.bfs.Stat(normalize(name))
	if err != nil {
		return nil, err
	}
	return withAccessTime(fi), nil
}

func (b *Backend) Lstat(name string) (fs.FileInfo, error) {
	fi, err := b.bfs.Lstat(normalize(name))
	if err != nil {
		return nil, err
	}
	return withAccessTime(fi), nil
}

// Scandir lists a directory. Symbolic links are followed to fill Stat.
func (b *Backend) Scandir(name string) ([]*vfs.DirEntry, error) {
	name = normalize(name)
	fi, err := b.bfs.Stat(name)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, pathErr("scandir", name, syscall.ENOTDIR)
	}

	infos, err := b.bfs.ReadDir(name)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		infos[i] = withAccessTime(infos[i])
	}
	return vfs.EntriesFromInfos(infos, func(child string) (fs.FileInfo, error) {
		return b.Stat(path.Join(name, child))
	}), nil
}

func (b *Backend) Symlink(target, name string) error {
	return b.bfs.Symlink(target, normalize(name))
}

func (b *Backend) Readlink(name string) (string, error) {
	return b.bfs.Readlink(normalize(name))
}

func (b *MetadataBackend) Chmod(name string, mode fs.FileMode) error {
	return b.change.Chmod(normalize(name), mode)
}

func (b *MetadataBackend) Chown(name string, uid, gid int) error {
	return b.change.Chown(normalize(name), uid, gid)
}

func (b *MetadataBackend) Utimes(name string, atime, mtime time.Time) error {
	return b.change.Chtimes(normalize(name), atime, mtime)
}

// osChange implements billy.Change with the os package. It is only valid
// for a filesystem rooted at "/".
type osChange struct{}

func (osChange) Chmod(name string, mode os.FileMode) error { return os.Chmod(name, mode) }
func (osChange) Lchown(name string, uid, gid int) error    { return os.Lchown(name, uid, gid) }
func (osChange) Chown(name string, uid, gid int) error     { return os.Chown(name, uid, gid) }
func (osChange) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// Compile-time interface checks.
var (
	_ vfs.OpenFS     = (*Backend)(nil)
	_ vfs.ScandirFS  = (*Backend)(nil)
	_ vfs.LstatFS    = (*Backend)(nil)
	_ vfs.SymlinkFS  = (*Backend)(nil)
	_ vfs.ReadlinkFS = (*Backend)(nil)
	_ vfs.ChmodFS    = (*MetadataBackend)(nil)
	_ vfs.UtimesFS   = (*MetadataBackend)(nil)
	_ billy.Change   = osChange{}
)
