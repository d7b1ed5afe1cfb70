// Package types provides file metadata for objects and virtual directories.
package types // nolint:revive // Internal package with clear purpose

import (
	"io/fs"
	"time"
)

const (
	fileMode = fs.FileMode(0o644)
	dirMode  = fs.ModeDir | 0o755
)

// FileInfo implements fs.FileInfo for objects and key prefixes.
type FileInfo struct {
	FileName    string
	FileSize    int64
	FileModTime time.Time
	FileMode    fs.FileMode
}

func (fi *FileInfo) Name() string       { return fi.FileName }
func (fi *FileInfo) Size() int64        { return fi.FileSize }
func (fi *FileInfo) Mode() fs.FileMode  { return fi.FileMode }
func (fi *FileInfo) ModTime() time.Time { return fi.FileModTime }
func (fi *FileInfo) IsDir() bool        { return fi.FileMode.IsDir() }
func (fi *FileInfo) Sys() interface{}   { return nil }

// NewFileInfo describes a regular object.
func NewFileInfo(name string, size int64, modTime time.Time) *FileInfo {
	return &FileInfo{
		FileName:    name,
		FileSize:    size,
		FileModTime: modTime,
		FileMode:    fileMode,
	}
}

// NewDirInfo describes a virtual directory. modTime is the marker's
// modification time, or zero when the directory has no marker.
func NewDirInfo(name string, modTime time.Time) *FileInfo {
	return &FileInfo{
		FileName:    name,
		FileModTime: modTime,
		FileMode:    dirMode,
	}
}

var _ fs.FileInfo = (*FileInfo)(nil)
