package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runFM(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("beta"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "junk.tmp"), []byte("x"), 0o644))
	dst := filepath.Join(dir, "dst")

	r := runFM(t, "", "-exclude", "*.tmp", "-buffer", "2", "cp", src, dst)
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "success: 2 files, 2 directories, 9 bytes, 1 excluded")

	data, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))
	info, err := os.Stat(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.NoFileExists(t, filepath.Join(dst, "junk.tmp"))
}

func TestMove_JSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))
	dst := filepath.Join(dir, "g")

	r := runFM(t, "", "-json", "mv", src, dst)
	require.Equal(t, exitOK, r.code, r.stderr)

	var report jsonReport
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &report))
	assert.Equal(t, "success", report.Outcome)
	assert.Equal(t, 1, report.Files)
	assert.NotEmpty(t, report.Session)
	assert.Nil(t, report.Error)

	assert.NoFileExists(t, src)
	assert.FileExists(t, dst)
}

func TestCopy_LinkCycle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("data"), 0o644))
	require.NoError(t, os.Symlink(src, filepath.Join(src, "loop")))
	dst := filepath.Join(dir, "dst")

	r := runFM(t, "s\n", "cp", src, dst)
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "into itself")
	assert.Contains(t, r.stdout, "success: 1 files, 1 directories, 4 bytes, 1 skipped")
	assert.FileExists(t, filepath.Join(dst, "f"))
	assert.NoDirExists(t, filepath.Join(dst, "loop"))
}

func TestCopy_Conflict(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	r := runFM(t, "n\n", "cp", src, dst)
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "already exists!")
	assert.Contains(t, r.stdout, "skipped: 0 files")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	r = runFM(t, "c\n", "cp", src, dst)
	assert.Equal(t, exitError, r.code)
	assert.Contains(t, r.stdout, "aborted")
}

func TestCopy_SelfIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	r := runFM(t, "", "-json", "cp", src, src)
	assert.Equal(t, exitError, r.code)

	var report jsonReport
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &report))
	assert.Equal(t, "fatal", report.Outcome)
	require.NotNil(t, report.Error)
	assert.Equal(t, "PRECONDITION_FAILED", report.Error.Code)
}

func TestPlugins(t *testing.T) {
	r := runFM(t, "", "plugins")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "* localfs")
	assert.Contains(t, r.stdout, "  memfs")
	assert.Contains(t, r.stdout, "built-in")
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_backend: memfs\nbuffer_size: 1024\n"), 0o600))

	r := runFM(t, "", "-config", path, "-buffer", "2048", "config")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "default_backend: memfs")
	assert.Contains(t, r.stdout, "buffer_size: 2048")

	r = runFM(t, "", "-config", path, "plugins")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "* memfs")
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("buffer_size: -1\n"), 0o600))

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no command", nil, exitUsage, "missing command"},
		{"unknown command", []string{"rm", "/a"}, exitUsage, `unknown command "rm"`},
		{"wrong arity", []string{"cp", "/a"}, exitUsage, "cp takes 2 arguments, got 1"},
		{"unknown flag", []string{"-nope", "plugins"}, exitUsage, "flag provided but not defined"},
		{"invalid config", []string{"-config", bad, "plugins"}, exitError, "buffer_size"},
		{"missing config", []string{"-config", filepath.Join(dir, "none.yaml"), "plugins"}, exitError, "No such file or directory"},
		{"bad log level", []string{"-log-level", "loud", "plugins"}, exitError, "invalid -log-level"},
		{"bad exclude", []string{"-exclude", "[", "cp", "/a", "/b"}, exitError, "Invalid argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runFM(t, "", tt.args...)
			assert.Equal(t, tt.code, r.code)
			assert.Contains(t, r.stderr, tt.want)
		})
	}
}
