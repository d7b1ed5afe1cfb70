package vfstest_test

import (
	stderrors "errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
	"github.com/Nazg-Gul/fm/vfs/vfstest"
)

func TestMemory_Suite(t *testing.T) {
	vfstest.TestSuite(t, func() vfs.Backend {
		return vfstest.NewMemory("mem")
	})
}

func TestObjectStore_Suite(t *testing.T) {
	config := vfstest.POSIXConfig("/")
	vfstest.TestSuiteWithConfig(t, func() vfs.Backend {
		return vfstest.ObjectStore(vfstest.NewMemory("objects"))
	}, config)
}

func TestObjectStore_Capabilities(t *testing.T) {
	b := vfstest.ObjectStore(vfstest.NewMemory("objects"))

	assert.False(t, vfs.Supports(b, vfs.OpChmod))
	assert.False(t, vfs.Supports(b, vfs.OpUtimes))
	assert.False(t, vfs.Supports(b, vfs.OpLstat))
	assert.True(t, vfs.Supports(b, vfs.OpScandir))
	assert.Equal(t, vfs.MoveCopy, vfs.MoveStrategy(b, "/a", "/b"))
}

func TestMemory_Fail(t *testing.T) {
	m := vfstest.NewMemory("mem")
	require.NoError(t, m.WriteFile("/f", []byte("data"), 0o644))

	boom := stderrors.New("transient")
	m.Fail(vfs.OpStat, "/f", boom, 2)

	_, err := vfs.Stat(m, "/f")
	assert.Equal(t, errors.CodeIO, errors.GetCode(err))
	assert.True(t, stderrors.Is(err, boom))
	_, err = vfs.Stat(m, "/f")
	assert.Error(t, err)
	_, err = vfs.Stat(m, "/f")
	assert.NoError(t, err)
	assert.Equal(t, 3, m.Calls(vfs.OpStat))
}

func TestMemory_ReleaseCounters(t *testing.T) {
	m := vfstest.NewMemory("mem")
	require.NoError(t, m.MkdirAll("/d", 0o755))
	require.NoError(t, m.WriteFile("/d/a", nil, 0o644))
	require.NoError(t, m.WriteFile("/d/b", nil, 0o644))

	batch, err := vfs.Scandir(m, "/d")
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 4, m.Listed())
	assert.Equal(t, 2, m.Released(), "dot entries are released by the batch")

	batch.Release()
	batch.Release()
	assert.Equal(t, 4, m.Released())
}

func TestMemory_ReadChunk(t *testing.T) {
	m := vfstest.NewMemory("mem")
	require.NoError(t, m.WriteFile("/f", []byte("0123456789"), 0o644))
	m.SetReadChunk(3)

	f, err := vfs.Open(m, "/f", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer vfs.Close(m, f)

	buf := make([]byte, 8)
	n, err := vfs.Read(m, f, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, m.OpenFiles())
}

func TestMemory_SymlinkedDirectory(t *testing.T) {
	m := vfstest.NewMemory("mem")
	require.NoError(t, m.MkdirAll("/real", 0o755))
	require.NoError(t, m.WriteFile("/real/x", []byte("x"), 0o644))
	require.NoError(t, m.Symlink("real", "/alias"))
	require.NoError(t, m.Symlink("/nowhere", "/dangling"))

	batch, err := vfs.Scandir(m, "/")
	require.NoError(t, err)
	defer batch.Release()

	byName := map[string]*vfs.DirEntry{}
	for _, e := range batch.Entries() {
		byName[e.Name] = e
	}
	assert.Equal(t, vfs.EntrySymlink, byName["alias"].Type)
	assert.True(t, byName["alias"].IsDir())
	assert.False(t, byName["dangling"].IsDir())

	data, err := m.ReadFile("/alias/x")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestMemory_TimesAndModes(t *testing.T) {
	m := vfstest.NewMemory("mem")
	require.NoError(t, m.WriteFile("/f", nil, 0o640))
	at := time.Date(2021, 1, 2, 3, 4, 5, 600, time.UTC)
	mt := time.Date(2022, 1, 2, 3, 4, 5, 700, time.UTC)
	require.NoError(t, m.SetTimes("/f", at, mt))

	fi, err := vfs.Stat(m, "/f")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o640), fi.Mode().Perm())
	assert.True(t, mt.Equal(fi.ModTime()))
	assert.True(t, at.Equal(vfs.AccessTime(fi)))

	require.NoError(t, vfs.Utime(m, "/f", 100, 200))
	fi, err = vfs.Stat(m, "/f")
	require.NoError(t, err)
	assert.Equal(t, int64(200), fi.ModTime().Unix())
}

func TestMemory_NotDirAncestor(t *testing.T) {
	m := vfstest.NewMemory("mem")
	require.NoError(t, m.WriteFile("/file", nil, 0o644))

	_, err := vfs.Stat(m, "/file/child")
	assert.Equal(t, errors.CodeNotDir, errors.GetCode(err))
	err = vfs.Mkdir(m, "/file/child", 0o755)
	assert.Equal(t, errors.CodeNotDir, errors.GetCode(err))
}
