// Command memfs is a loadable VFS module serving an in-memory filesystem
// under the name "plugmem".
//
// Build it with:
//
//	go build -buildmode=plugin -o plugmem.so ./cmd/plugins/memfs
package main

import (
	"github.com/Nazg-Gul/fm/backends/billyfs"
	"github.com/Nazg-Gul/fm/vfs"
)

// Name is the backend name the module registers.
const Name = "plugmem"

// VFSPluginInit is the module entry point.
func VFSPluginInit() (vfs.Backend, error) {
	return billyfs.NewMemory(billyfs.WithName(Name)), nil
}

func main() {}
