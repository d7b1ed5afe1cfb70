package vfstest

import (
	"io"
	"io/fs"
	"os"

	"github.com/Nazg-Gul/fm/vfs"
)

// WriteFile creates or truncates name on b and writes data, using only
// dispatch functions.
func WriteFile(b vfs.Backend, name string, data []byte, perm fs.FileMode) error {
	f, err := vfs.Open(b, name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	for len(data) > 0 {
		n, err := vfs.Write(b, f, data)
		if err != nil {
			_ = vfs.Close(b, f)
			return err
		}
		data = data[n:]
	}
	return vfs.Close(b, f)
}

// ReadFile reads name on b to EOF using only dispatch functions.
func ReadFile(b vfs.Backend, name string) ([]byte, error) {
	f, err := vfs.Open(b, name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	var out []byte
	buf := make([]byte, 512)
	for {
		n, err := vfs.Read(b, f, buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = vfs.Close(b, f)
			return nil, err
		}
	}
	return out, vfs.Close(b, f)
}

// Names returns the entry names of dir and releases the batch.
func Names(b vfs.Backend, dir string) ([]string, error) {
	batch, err := vfs.Scandir(b, dir)
	if err != nil {
		return nil, err
	}
	defer batch.Release()

	names := make([]string, 0, batch.Len())
	for _, e := range batch.Entries() {
		names = append(names, e.Name)
	}
	return names, nil
}
