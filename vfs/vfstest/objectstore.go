package vfstest

import (
	"io/fs"

	"github.com/Nazg-Gul/fm/vfs"
)

// ObjectStore exposes m with the capability set of an object store: files
// and directories only, no metadata setters, links or lstat, and moves
// always copy.
func ObjectStore(m *Memory) vfs.Backend {
	return objectStore{m: m}
}

type objectStore struct {
	m *Memory
}

func (o objectStore) Name() string { return o.m.Name() }

func (o objectStore) Open(name string, flag int, perm fs.FileMode) (vfs.File, error) {
	return o.m.Open(name, flag, perm)
}

func (o objectStore) Unlink(name string) error { return o.m.Unlink(name) }

func (o objectStore) Mkdir(name string, perm fs.FileMode) error { return o.m.Mkdir(name, perm) }

func (o objectStore) Rmdir(name string) error { return o.m.Rmdir(name) }

func (o objectStore) Rename(oldname, newname string) error { return o.m.Rename(oldname, newname) }

func (o objectStore) Stat(name string) (fs.FileInfo, error) { return o.m.Stat(name) }

func (o objectStore) Scandir(name string) ([]*vfs.DirEntry, error) { return o.m.Scandir(name) }

func (o objectStore) MoveStrategy(_, _ string) vfs.Strategy { return vfs.MoveCopy }
