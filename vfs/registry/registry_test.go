package registry

import (
	stderrors "errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
	"github.com/Nazg-Gul/fm/vfs/loader"
	"github.com/Nazg-Gul/fm/vfs/vfstest"
)

type hookedBackend struct {
	*vfstest.Memory
	loadErr   error
	unloadErr error
	unloaded  int
}

func (h *hookedBackend) OnLoad() error { return h.loadErr }

func (h *hookedBackend) OnUnload() error {
	h.unloaded++
	return h.unloadErr
}

type fakeModule struct {
	backend vfs.Backend
	closed  int
}

func (m *fakeModule) Lookup(string) (any, error) {
	return loader.InitFunc(func() (vfs.Backend, error) { return m.backend, nil }), nil
}

func (m *fakeModule) Close() error {
	m.closed++
	return nil
}

type fakeOpener map[string]*fakeModule

func (o fakeOpener) Open(path string) (loader.Module, error) {
	m, ok := o[path]
	if !ok {
		return nil, stderrors.New("no such module")
	}
	return m, nil
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *vfstest.Memory) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithLogger(logrus.NewEntry(logger))}, opts...)
	r := New(opts...)

	local := vfstest.NewMemory(DefaultBackend)
	require.NoError(t, r.Register(local))
	return r, local
}

func TestRegister_Duplicate(t *testing.T) {
	r, _ := newTestRegistry(t)

	err := r.Register(vfstest.NewMemory(DefaultBackend))
	assert.Equal(t, errors.CodePluginExists, errors.GetCode(err))
	assert.Equal(t, []string{DefaultBackend}, r.Names())
}

func TestRegister_NameWithDelimiter(t *testing.T) {
	r, _ := newTestRegistry(t)

	err := r.Register(vfstest.NewMemory("a::b"))
	assert.Equal(t, errors.CodePluginInit, errors.GetCode(err))
	assert.Equal(t, []string{DefaultBackend}, r.Names())
}

func TestRegister_LoadHookFails(t *testing.T) {
	r, _ := newTestRegistry(t)

	b := &hookedBackend{Memory: vfstest.NewMemory("hooked"), loadErr: stderrors.New("no credentials")}
	err := r.Register(b)
	assert.Equal(t, errors.CodePluginInit, errors.GetCode(err))
	assert.False(t, r.Loaded("hooked"))
}

func TestLoad(t *testing.T) {
	mod := &fakeModule{backend: vfstest.NewMemory("plugmem")}
	r, _ := newTestRegistry(t, WithOpener(fakeOpener{"/p/plugmem.so": mod}))

	name, err := r.Load("/p/plugmem.so")
	require.NoError(t, err)
	assert.Equal(t, "plugmem", name)
	assert.True(t, r.Loaded("plugmem"))

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, DefaultBackend, infos[0].Name)
	assert.True(t, infos[0].Default)
	assert.Equal(t, "plugmem", infos[1].Name)
	assert.Equal(t, "/p/plugmem.so", infos[1].Path)
	assert.Contains(t, infos[1].Capabilities, vfs.OpScandir)

	require.NoError(t, r.Unload("plugmem"))
	assert.Equal(t, 1, mod.closed)
}

func TestLoad_Failures(t *testing.T) {
	dup := &fakeModule{backend: vfstest.NewMemory(DefaultBackend)}
	r, _ := newTestRegistry(t, WithOpener(fakeOpener{"/p/dup.so": dup}))

	_, err := r.Load("/p/missing.so")
	assert.Equal(t, errors.CodePluginLoad, errors.GetCode(err))

	_, err = r.Load("/p/dup.so")
	assert.Equal(t, errors.CodePluginExists, errors.GetCode(err))
	assert.Equal(t, 1, dup.closed)
	assert.Equal(t, []string{DefaultBackend}, r.Names())
}

func TestUnload(t *testing.T) {
	r, _ := newTestRegistry(t)
	b := &hookedBackend{Memory: vfstest.NewMemory("remote"), unloadErr: stderrors.New("connection reset")}
	require.NoError(t, r.Register(b))

	err := r.Unload("remote")
	require.Error(t, err)
	assert.Equal(t, 1, b.unloaded)
	assert.False(t, r.Loaded("remote"), "backend is removed even when the hook fails")

	err = r.Unload("remote")
	assert.Equal(t, errors.CodePluginNotFound, errors.GetCode(err))
}

func TestUnload_BusyWhileHandlesOpen(t *testing.T) {
	r, local := newTestRegistry(t)
	require.NoError(t, local.WriteFile("/f", []byte("x"), 0o644))

	h, err := r.Open("/f", os.O_RDONLY, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, r.OpenHandles(DefaultBackend))

	err = r.Unload(DefaultBackend)
	assert.Equal(t, errors.CodePluginBusy, errors.GetCode(err))
	assert.True(t, r.Loaded(DefaultBackend))

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 0, r.OpenHandles(DefaultBackend))
	assert.Equal(t, 0, local.OpenFiles())

	require.NoError(t, r.Unload(DefaultBackend))
}

func TestUnload_DuringOpen(t *testing.T) {
	r, local := newTestRegistry(t)
	require.NoError(t, local.WriteFile("/f", []byte("x"), 0o644))

	var unloadErr error
	local.OnOp(func(op vfs.Op, _ string) error {
		if op == vfs.OpOpen {
			unloadErr = r.Unload(DefaultBackend)
		}
		return nil
	})

	h, err := r.Open("/f", os.O_RDONLY, 0)
	require.NoError(t, err)
	assert.Equal(t, errors.CodePluginBusy, errors.GetCode(unloadErr))
	assert.True(t, r.Loaded(DefaultBackend))
	require.NoError(t, h.Close())
}

func TestOpen_FailureReleasesSlot(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Open("/missing", os.O_RDONLY, 0)
	assert.Equal(t, errors.CodeNotExist, errors.GetCode(err))
	assert.Equal(t, 0, r.OpenHandles(DefaultBackend))
	require.NoError(t, r.Unload(DefaultBackend))
}

func TestResolve(t *testing.T) {
	r, local := newTestRegistry(t)
	mem := vfstest.NewMemory("memfs")
	require.NoError(t, r.Register(mem))

	p, err := r.Resolve("/home/user")
	require.NoError(t, err)
	assert.Equal(t, vfs.Backend(local), p.Backend)
	assert.Equal(t, "/home/user", p.Name)

	p, err = r.Resolve("memfs::/a/b")
	require.NoError(t, err)
	assert.Equal(t, vfs.Backend(mem), p.Backend)
	assert.Equal(t, "/a/b", p.Name)
	assert.Equal(t, "memfs::/a/b", p.URL)

	tests := []struct {
		url  string
		want errors.ErrorCode
	}{
		{"relative/path", errors.CodeInvalidURL},
		{"", errors.CodeInvalidURL},
		{"::/x", errors.CodeInvalidURL},
		{"nosuch::/x", errors.CodePluginNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := r.Resolve(tt.url)
			assert.Equal(t, tt.want, errors.GetCode(err))
		})
	}
}

func TestResolve_CustomDefault(t *testing.T) {
	r, _ := newTestRegistry(t, WithDefault("memfs"))

	_, err := r.Resolve("/x")
	assert.Equal(t, errors.CodePluginNotFound, errors.GetCode(err))

	require.NoError(t, r.Register(vfstest.NewMemory("memfs")))
	p, err := r.Resolve("/x")
	require.NoError(t, err)
	assert.Equal(t, "memfs", p.Backend.Name())
}

func TestSamePathAndContains(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(vfstest.NewMemory("memfs")))

	assert.True(t, r.SamePath("/a/b", "localfs::/a//b/"))
	assert.False(t, r.SamePath("/a/b", "memfs::/a/b"))
	assert.True(t, r.SameBackend("/a", "localfs::/b"))
	assert.False(t, r.SameBackend("/a", "memfs::/a"))
	assert.True(t, r.Contains("/a", "localfs::/a/b/c"))
	assert.False(t, r.Contains("/a", "/ab"))
	assert.False(t, r.Contains("/a", "memfs::/a/b"))
}

func TestURLOperations(t *testing.T) {
	r, local := newTestRegistry(t)
	require.NoError(t, local.MkdirAll("/src", 0o755))
	require.NoError(t, local.WriteFile("/src/a.txt", []byte("hello"), 0o644))

	isDir, err := r.IsDir("/src")
	require.NoError(t, err)
	assert.True(t, isDir)

	require.NoError(t, r.Mkdir("/dst", 0o700))
	require.NoError(t, r.Chmod("/src/a.txt", 0o600))
	fi, err := r.Stat("/src/a.txt")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	mtime := time.Unix(1600000000, 42)
	require.NoError(t, r.Utimes("/src/a.txt", mtime, mtime))
	fi, err = r.Lstat("/src/a.txt")
	require.NoError(t, err)
	assert.True(t, mtime.Equal(fi.ModTime()))

	h, err := r.Open("/dst/b.txt", os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = io.WriteString(h, "copied")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	batch, err := r.Scandir("/dst")
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	batch.Release()

	require.NoError(t, r.Rename("/dst/b.txt", "/dst/c.txt"))
	require.NoError(t, r.Unlink("/dst/c.txt"))
	require.NoError(t, r.Rmdir("/dst"))
	assert.False(t, local.Exists("/dst"))
}

func TestUtimes_FallsBackToUtime(t *testing.T) {
	r, _ := newTestRegistry(t)
	m := vfstest.NewMemory("secs")
	require.NoError(t, r.Register(secondsOnly{m}))
	require.NoError(t, m.WriteFile("/f", nil, 0o644))

	mtime := time.Unix(1700000000, 999)
	require.NoError(t, r.Utimes("secs::/f", mtime, mtime))

	fi, err := m.Stat("/f")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), fi.ModTime().Unix())
	assert.Zero(t, fi.ModTime().Nanosecond())
	assert.Equal(t, 1, m.Calls(vfs.OpUtime))
}

type secondsOnly struct {
	m *vfstest.Memory
}

func (s secondsOnly) Name() string { return s.m.Name() }

func (s secondsOnly) Utime(name string, atime, mtime int64) error {
	return s.m.Utime(name, atime, mtime)
}

func TestRename_AcrossBackends(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(vfstest.NewMemory("memfs")))

	err := r.Rename("/a", "memfs::/a")
	assert.Equal(t, errors.CodeInvalidArgument, errors.GetCode(err))
}

func TestMoveStrategy(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Register(vfstest.ObjectStore(vfstest.NewMemory("s3"))))

	assert.Equal(t, vfs.MoveRename, r.MoveStrategy("/a", "/b"))
	assert.Equal(t, vfs.MoveCopy, r.MoveStrategy("/a", "s3::/b"))
	assert.Equal(t, vfs.MoveCopy, r.MoveStrategy("s3::/a", "s3::/b"))
}

func TestOpen_HandleMethodNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	m := vfstest.NewMemory("wo")
	require.NoError(t, r.Register(writeOnly{m}))
	require.NoError(t, m.WriteFile("/f", []byte("x"), 0o644))

	h, err := r.Open("wo::/f", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Read(make([]byte, 1))
	assert.Equal(t, errors.CodeMethodNotFound, errors.GetCode(err))
}

type writeOnly struct {
	m *vfstest.Memory
}

func (w writeOnly) Name() string { return w.m.Name() }

func (w writeOnly) Open(name string, flag int, perm os.FileMode) (vfs.File, error) {
	f, err := w.m.Open(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return closer{f}, nil
}

type closer struct {
	f vfs.File
}

func (c closer) Name() string { return c.f.Name() }
func (c closer) Close() error { return c.f.Close() }
