package vfstest

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// TestRead tests open, read, lseek and stat on files and directories.
func TestRead(t *testing.T, b vfs.Backend, config Config) {
	requireOps(t, b, vfs.OpOpen, vfs.OpStat)

	content := []byte("test file content")
	dir := config.path("readdir")
	file := dir + "/file.txt"
	if !config.ImplicitParentDirs || vfs.Supports(b, vfs.OpMkdir) {
		if err := vfs.Mkdir(b, dir, 0o755); err != nil {
			t.Fatalf("Mkdir(%s): setup failed: %v", dir, err)
		}
	}
	if err := WriteFile(b, file, content, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): setup failed: %v", file, err)
	}

	config.run(t, "Read", "ReadAll", func(t *testing.T) {
		data, err := ReadFile(b, file)
		if err != nil {
			t.Fatalf("ReadFile(%s): got error %v, want nil", file, err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("ReadFile(%s): got %q, want %q", file, data, content)
		}
	})

	config.run(t, "Read", "EOF", func(t *testing.T) {
		f, err := vfs.Open(b, file, os.O_RDONLY, 0)
		if err != nil {
			t.Fatalf("Open(%s): got error %v", file, err)
		}
		defer vfs.Close(b, f)

		buf := make([]byte, len(content)*2)
		total := 0
		for {
			n, err := vfs.Read(b, f, buf[total:])
			total += n
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Read(): got error %v", err)
			}
		}
		if total != len(content) {
			t.Errorf("Read(): got %d bytes, want %d", total, len(content))
		}
		if n, err := vfs.Read(b, f, buf); n != 0 || err != io.EOF {
			t.Errorf("Read() after EOF: got (%d, %v), want (0, io.EOF)", n, err)
		}
	})

	config.run(t, "Read", "Seek", func(t *testing.T) {
		f, err := vfs.Open(b, file, os.O_RDONLY, 0)
		if err != nil {
			t.Fatalf("Open(%s): got error %v", file, err)
		}
		defer vfs.Close(b, f)

		if _, ok := f.(io.Seeker); !ok {
			t.Skip("handle does not support lseek")
		}
		pos, err := vfs.Lseek(b, f, 5, io.SeekStart)
		if err != nil || pos != 5 {
			t.Fatalf("Lseek(5, SeekStart): got (%d, %v), want (5, nil)", pos, err)
		}
		buf := make([]byte, 4)
		if _, err := io.ReadFull(readerOf(b, f), buf); err != nil {
			t.Fatalf("Read() after seek: got error %v", err)
		}
		if string(buf) != "file" {
			t.Errorf("Read() after seek: got %q, want %q", buf, "file")
		}
	})

	config.run(t, "Read", "StatFile", func(t *testing.T) {
		fi, err := vfs.Stat(b, file)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", file, err)
		}
		if fi.IsDir() {
			t.Errorf("Stat(%s).IsDir(): got true, want false", file)
		}
		if fi.Size() != int64(len(content)) {
			t.Errorf("Stat(%s).Size(): got %d, want %d", file, fi.Size(), len(content))
		}
		if fi.Name() != "file.txt" {
			t.Errorf("Stat(%s).Name(): got %q, want %q", file, fi.Name(), "file.txt")
		}
	})

	config.run(t, "Read", "StatDir", func(t *testing.T) {
		fi, err := vfs.Stat(b, dir)
		if err != nil {
			t.Fatalf("Stat(%s): got error %v", dir, err)
		}
		if !fi.IsDir() {
			t.Errorf("Stat(%s).IsDir(): got false, want true", dir)
		}
	})

	config.run(t, "Read", "NotExist", func(t *testing.T) {
		missing := config.path("missing.txt")
		if _, err := vfs.Open(b, missing, os.O_RDONLY, 0); errors.GetCode(err) != errors.CodeNotExist {
			t.Errorf("Open(%s): got %v, want NOT_EXIST", missing, err)
		}
		if _, err := vfs.Stat(b, missing); errors.GetCode(err) != errors.CodeNotExist {
			t.Errorf("Stat(%s): got %v, want NOT_EXIST", missing, err)
		}
	})
}

type dispatchReader struct {
	b vfs.Backend
	f vfs.File
}

func (r dispatchReader) Read(p []byte) (int, error) { return vfs.Read(r.b, r.f, p) }

func readerOf(b vfs.Backend, f vfs.File) io.Reader {
	return dispatchReader{b: b, f: f}
}
