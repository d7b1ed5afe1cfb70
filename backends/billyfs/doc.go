// Package billyfs provides VFS backends on top of go-billy filesystems.
//
// NewLocal returns the default "localfs" backend, an osfs filesystem rooted
// at "/". NewMemory returns an in-memory backend named "memfs". Both support
// open, read, write, lseek, unlink, mkdir, rmdir, rename, stat, lstat,
// scandir, symlink and readlink. Chmod, chown and utimes are available when
// the underlying filesystem implements billy.Change; the local backend falls
// back to the os package for them.
//
// Usage:
//
//	reg := registry.New()
//	_ = reg.Register(billyfs.NewLocal())
//	_ = reg.Register(billyfs.NewMemory())
//
// Unwrap gives access to the billy.Filesystem for code that speaks billy
// directly.
package billyfs
