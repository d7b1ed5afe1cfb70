// Package vfstest provides a conformance suite for VFS backends and an
// instrumented in-memory backend for testing code built on the VFS.
//
// The suite only exercises capabilities a backend advertises; groups whose
// primitives are missing are skipped, and the MethodNotFound group checks
// that every missing primitive is reported uniformly by dispatch.
//
// Example usage:
//
//	func TestMyBackend(t *testing.T) {
//	    vfstest.TestSuite(t, func() vfs.Backend {
//	        return mybackend.New()
//	    })
//	}
package vfstest

import (
	"testing"

	"github.com/Nazg-Gul/fm/vfs"
)

// Config describes the backend under test.
type Config struct {
	// Root is an existing directory all tests work below. Groups use
	// disjoint names, so backends sharing storage may share a Root.
	Root string

	// VirtualDirectories indicates directories are virtual (object store
	// prefixes): empty directories may disappear once their last child is
	// removed.
	VirtualDirectories bool

	// IdempotentDelete indicates unlinking a missing file succeeds.
	IdempotentDelete bool

	// ImplicitParentDirs indicates files can be created without their
	// parent directories.
	ImplicitParentDirs bool

	// SkipTests lists groups or subtests to skip, e.g. "Write/Append".
	SkipTests []string
}

// POSIXConfig returns the configuration for local and memory backends.
func POSIXConfig(root string) Config {
	return Config{Root: root}
}

// ObjectStoreConfig returns the configuration for S3-like backends.
func ObjectStoreConfig(root string) Config {
	return Config{
		Root:               root,
		VirtualDirectories: true,
		IdempotentDelete:   true,
		ImplicitParentDirs: true,
	}
}

// TestSuite runs the suite with POSIXConfig("/").
func TestSuite(t *testing.T, newBackend func() vfs.Backend) {
	TestSuiteWithConfig(t, newBackend, POSIXConfig("/"))
}

// TestSuiteWithConfig runs every applicable group. newBackend must return
// a fresh backend whose Root exists and is empty.
func TestSuiteWithConfig(t *testing.T, newBackend func() vfs.Backend, config Config) {
	groups := []struct {
		name string
		run  func(*testing.T, vfs.Backend, Config)
	}{
		{"Read", TestRead},
		{"Write", TestWrite},
		{"Manage", TestManage},
		{"Scandir", TestScandir},
		{"Metadata", TestMetadata},
		{"Symlink", TestSymlink},
		{"MethodNotFound", TestMethodNotFound},
	}

	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if config.skip(g.name) {
				t.Skip("Skipped by backend configuration")
			}
			g.run(t, newBackend(), config)
		})
	}
}

func (c Config) skip(name string) bool {
	for _, s := range c.SkipTests {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) path(name string) string {
	if c.Root == "" || c.Root == "/" {
		return "/" + name
	}
	return c.Root + "/" + name
}

// run runs a subtest unless it is listed in SkipTests.
func (c Config) run(t *testing.T, group, name string, fn func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		if c.skip(group + "/" + name) {
			t.Skip("Skipped by backend configuration")
		}
		fn(t)
	})
}

func requireOps(t *testing.T, b vfs.Backend, ops ...vfs.Op) {
	t.Helper()
	for _, op := range ops {
		if !vfs.Supports(b, op) {
			t.Skipf("%s not supported by %s", op, b.Name())
		}
	}
}
