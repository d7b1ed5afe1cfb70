package registry

import (
	"sync"

	"github.com/Nazg-Gul/fm/vfs"
)

// handle counts itself against its backend until closed. The count is
// taken by Registry.Open before the file is opened and dropped by Close.
type handle struct {
	file    vfs.File
	backend vfs.Backend
	entry   *entry
	once    sync.Once
}

func newHandle(e *entry, f vfs.File) *handle {
	return &handle{file: f, backend: e.backend, entry: e}
}

func (h *handle) Name() string { return h.file.Name() }

func (h *handle) Read(p []byte) (int, error) {
	return vfs.Read(h.backend, h.file, p)
}

func (h *handle) Write(p []byte) (int, error) {
	return vfs.Write(h.backend, h.file, p)
}

func (h *handle) Seek(offset int64, whence int) (int64, error) {
	return vfs.Lseek(h.backend, h.file, offset, whence)
}

// Close closes the file the first time it is called; later calls return nil.
func (h *handle) Close() error {
	var err error
	h.once.Do(func() {
		err = vfs.Close(h.backend, h.file)
		h.entry.handles.Add(-1)
	})
	return err
}
