package vfs

import (
	"io"
	"io/fs"
	"os"
	"reflect"
	"time"
)

// Backend is a storage backend. The name is used as the URL qualifier and
// must be unique within a registry.
type Backend interface {
	Name() string
}

// LoadHook is implemented by backends that need setup once registered.
type LoadHook interface {
	OnLoad() error
}

// UnloadHook is implemented by backends holding resources such as network
// connections. It runs before the backend is removed from the registry.
type UnloadHook interface {
	OnUnload() error
}

// File is an open file handle.
//
// Optional capabilities (use type assertions, or the Read, Write and Lseek
// dispatch functions):
//
//   - io.Reader
//   - io.Writer
//   - io.Seeker
type File interface {
	io.Closer

	// Name returns the path the file was opened with.
	Name() string
}

// OpenFS opens files. flag is a combination of the os.O_* flags.
type OpenFS interface {
	Open(name string, flag int, perm fs.FileMode) (File, error)
}

type UnlinkFS interface {
	Unlink(name string) error
}

// MkdirFS creates a single directory. An existing node at name must be
// reported with an error matching fs.ErrExist.
type MkdirFS interface {
	Mkdir(name string, perm fs.FileMode) error
}

// RmdirFS removes an empty directory.
type RmdirFS interface {
	Rmdir(name string) error
}

type ChmodFS interface {
	Chmod(name string, mode fs.FileMode) error
}

type ChownFS interface {
	Chown(name string, uid, gid int) error
}

// RenameFS renames within a single backend.
type RenameFS interface {
	Rename(oldname, newname string) error
}

// StatFS returns metadata, following symbolic links.
type StatFS interface {
	Stat(name string) (fs.FileInfo, error)
}

// LstatFS returns metadata without following symbolic links.
type LstatFS interface {
	Lstat(name string) (fs.FileInfo, error)
}

// ScandirFS lists a directory. Order is unspecified and the list may include
// "." and ".."; the Scandir dispatch function normalizes both.
type ScandirFS interface {
	Scandir(name string) ([]*DirEntry, error)
}

// UtimeFS sets access and modification times with second precision.
type UtimeFS interface {
	Utime(name string, atime, mtime int64) error
}

// UtimesFS sets access and modification times with full precision.
type UtimesFS interface {
	Utimes(name string, atime, mtime time.Time) error
}

// SymlinkFS creates a symbolic link at name pointing to target.
type SymlinkFS interface {
	Symlink(target, name string) error
}

// LinkFS creates a hard link.
type LinkFS interface {
	Link(oldname, newname string) error
}

type ReadlinkFS interface {
	Readlink(name string) (string, error)
}

// MknodFS creates device and FIFO nodes.
type MknodFS interface {
	Mknod(name string, mode fs.FileMode, dev uint64) error
}

// Strategy tells the copy engine how to move src to dst.
type Strategy int

const (
	// MoveCopy copies the data and then removes the source.
	MoveCopy Strategy = iota
	// MoveRename uses the backend's rename primitive.
	MoveRename
)

func (s Strategy) String() string {
	if s == MoveRename {
		return "rename"
	}
	return "copy"
}

// MoveStrategyFS lets a backend choose the move strategy per path pair.
// Backends without it get MoveRename when they implement RenameFS.
type MoveStrategyFS interface {
	MoveStrategy(src, dst string) Strategy
}

// AccessTimer is implemented by fs.FileInfo values that know the last
// access time of the file.
type AccessTimer interface {
	AccessTime() time.Time
}

// AccessTime returns the access time of fi, or its modification time when
// the backend does not track access times.
func AccessTime(fi fs.FileInfo) time.Time {
	if at, ok := fi.(AccessTimer); ok {
		return at.AccessTime()
	}
	return fi.ModTime()
}

// SameFile reports whether a and b describe the same file. Local files are
// compared by device and inode, looking through wrappers that implement
// Unwrap() fs.FileInfo. Other backends match only when both carry the same
// pointer in Sys.
func SameFile(a, b fs.FileInfo) bool {
	if a == nil || b == nil {
		return false
	}
	if os.SameFile(unwrapInfo(a), unwrapInfo(b)) {
		return true
	}
	sa, sb := a.Sys(), b.Sys()
	if sa == nil || reflect.TypeOf(sa).Kind() != reflect.Pointer {
		return false
	}
	return sa == sb
}

func unwrapInfo(fi fs.FileInfo) fs.FileInfo {
	for {
		u, ok := fi.(interface{ Unwrap() fs.FileInfo })
		if !ok {
			return fi
		}
		fi = u.Unwrap()
	}
}

// Handle is a file handle with every handle-level primitive routed through
// dispatch. Calls the underlying file does not support fail with
// METHOD_NOT_FOUND.
type Handle interface {
	File
	io.Reader
	io.Writer
	io.Seeker
}
