package loader

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

type namedBackend string

func (n namedBackend) Name() string { return string(n) }

type fakeModule struct {
	symbols map[string]any
	closed  int
}

func (m *fakeModule) Lookup(symbol string) (any, error) {
	s, ok := m.symbols[symbol]
	if !ok {
		return nil, stderrors.New("symbol not found")
	}
	return s, nil
}

func (m *fakeModule) Close() error {
	m.closed++
	return nil
}

type fakeOpener struct {
	mod *fakeModule
	err error
}

func (o fakeOpener) Open(string) (Module, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.mod, nil
}

func entry(b vfs.Backend, err error) InitFunc {
	return func() (vfs.Backend, error) { return b, err }
}

func TestLoad(t *testing.T) {
	mod := &fakeModule{symbols: map[string]any{EntrySymbol: entry(namedBackend("demo"), nil)}}

	l, err := Load(fakeOpener{mod: mod}, "/plugins/demo.so", nil)
	require.NoError(t, err)
	assert.Equal(t, "demo", l.Name())
	assert.Equal(t, "/plugins/demo.so", l.Path)
	assert.Zero(t, mod.closed)

	require.NoError(t, l.Close())
	assert.Equal(t, 1, mod.closed)
}

func TestLoad_Logger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	mod := &fakeModule{symbols: map[string]any{EntrySymbol: entry(namedBackend("demo"), nil)}}

	_, err := Load(fakeOpener{mod: mod}, "/plugins/demo.so", logrus.NewEntry(logger))
	require.NoError(t, err)

	require.Len(t, hook.AllEntries(), 2)
	last := hook.LastEntry()
	assert.Equal(t, "Loaded VFS module", last.Message)
	assert.Equal(t, "loader", last.Data["component"])
	assert.Equal(t, "/plugins/demo.so", last.Data["path"])
	assert.Equal(t, "demo", last.Data["plugin"])
}

func TestLoad_PointerSymbol(t *testing.T) {
	fn := entry(namedBackend("demo"), nil)
	mod := &fakeModule{symbols: map[string]any{EntrySymbol: &fn}}

	l, err := Load(fakeOpener{mod: mod}, "demo.so", nil)
	require.NoError(t, err)
	assert.Equal(t, "demo", l.Name())
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name   string
		opener fakeOpener
		want   errors.ErrorCode
		closeN int
	}{
		{
			name:   "open fails",
			opener: fakeOpener{err: stderrors.New("bad ELF")},
			want:   errors.CodePluginLoad,
		},
		{
			name:   "missing symbol",
			opener: fakeOpener{mod: &fakeModule{symbols: map[string]any{}}},
			want:   errors.CodePluginFormat,
			closeN: 1,
		},
		{
			name:   "wrong symbol type",
			opener: fakeOpener{mod: &fakeModule{symbols: map[string]any{EntrySymbol: 42}}},
			want:   errors.CodePluginFormat,
			closeN: 1,
		},
		{
			name: "entry error",
			opener: fakeOpener{mod: &fakeModule{symbols: map[string]any{
				EntrySymbol: entry(nil, stderrors.New("no config")),
			}}},
			want:   errors.CodePluginInit,
			closeN: 1,
		},
		{
			name: "nil backend",
			opener: fakeOpener{mod: &fakeModule{symbols: map[string]any{
				EntrySymbol: entry(nil, nil),
			}}},
			want:   errors.CodePluginInit,
			closeN: 1,
		},
		{
			name: "empty name",
			opener: fakeOpener{mod: &fakeModule{symbols: map[string]any{
				EntrySymbol: entry(namedBackend(""), nil),
			}}},
			want:   errors.CodePluginInit,
			closeN: 1,
		},
		{
			name: "name with delimiter",
			opener: fakeOpener{mod: &fakeModule{symbols: map[string]any{
				EntrySymbol: entry(namedBackend("a::b"), nil),
			}}},
			want:   errors.CodePluginInit,
			closeN: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Load(tt.opener, "x.so", nil)
			require.Error(t, err)
			assert.Nil(t, l)
			assert.Equal(t, tt.want, errors.GetCode(err))
			if tt.opener.mod != nil {
				assert.Equal(t, tt.closeN, tt.opener.mod.closed)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.so", "a.so", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.so"), 0o755))

	paths, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.so"), filepath.Join(dir, "b.so")}, paths)
}

func TestDiscover_MissingDir(t *testing.T) {
	paths, err := Discover(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = Discover("")
	require.NoError(t, err)
	assert.Empty(t, paths)
}
