package billyfs

import (
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/Nazg-Gul/fm/vfs"
)

// File wraps billy.File. It stores the filename since billy.File.Name()
// may return different formats depending on the backend implementation.
type File struct {
	file billy.File
	name string
}

func (f *File) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

func (f *File) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.file.Seek(offset, whence)
}

func (f *File) Close() error {
	return f.file.Close()
}

// Name returns the name provided to Open.
func (f *File) Name() string {
	return f.name
}

// Compile-time interface checks.
var (
	_ vfs.File  = (*File)(nil)
	_ io.Reader = (*File)(nil)
	_ io.Writer = (*File)(nil)
	_ io.Seeker = (*File)(nil)
)
