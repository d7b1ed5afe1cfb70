// Package loader opens loadable backend modules and validates the backend
// they export.
//
// A module is a Go plugin (built with -buildmode=plugin) exporting a
// function named VFSPluginInit with the signature of InitFunc. The loader
// only validates the module; registering the backend is the registry's job.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// EntrySymbol is the symbol every module must export.
const EntrySymbol = "VFSPluginInit"

// Extension is the file extension Discover looks for.
const Extension = ".so"

// InitFunc is the type of the entry symbol. It returns the module's backend.
type InitFunc = func() (vfs.Backend, error)

// Module is an opened module.
type Module interface {
	Lookup(symbol string) (any, error)
	Close() error
}

// Opener opens modules. GoPlugin is the production implementation; tests
// substitute their own.
type Opener interface {
	Open(path string) (Module, error)
}

// GoPlugin opens modules with the Go runtime plugin mechanism. The runtime
// cannot unload a plugin, so Close only drops the reference.
type GoPlugin struct{}

func (GoPlugin) Open(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return goModule{p: p}, nil
}

type goModule struct {
	p *plugin.Plugin
}

func (m goModule) Lookup(symbol string) (any, error) {
	return m.p.Lookup(symbol)
}

func (goModule) Close() error { return nil }

// Loaded is a validated module and its backend.
type Loaded struct {
	Path    string
	Backend vfs.Backend
	module  Module
}

// Name returns the backend name.
func (l *Loaded) Name() string {
	return l.Backend.Name()
}

// Close releases the module. It does not run the backend's unload hook.
func (l *Loaded) Close() error {
	if l.module == nil {
		return nil
	}
	return l.module.Close()
}

// Load opens the module at path and runs its entry function. A nil log
// uses the standard logger.
//
// An unopenable module fails with PLUGIN_LOAD, a missing or mistyped entry
// symbol with PLUGIN_FORMAT, and an entry that errors or returns an unnamed
// backend with PLUGIN_INIT. On failure the module is closed.
func Load(opener Opener, path string, log *logrus.Entry) (*Loaded, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"component": "loader", "path": path})
	log.Debug("Loading VFS module")

	mod, err := opener.Open(path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodePluginLoad,
			"cannot open module", map[string]interface{}{"path": path})
	}

	backend, err := initModule(mod, path)
	if err != nil {
		if cerr := mod.Close(); cerr != nil {
			log.WithError(cerr).Warn("Closing module after failed load")
		}
		return nil, err
	}

	log.WithField("plugin", backend.Name()).Info("Loaded VFS module")
	return &Loaded{Path: path, Backend: backend, module: mod}, nil
}

func initModule(mod Module, path string) (vfs.Backend, error) {
	ctx := map[string]interface{}{"path": path, "symbol": EntrySymbol}

	sym, err := mod.Lookup(EntrySymbol)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodePluginFormat,
			"entry symbol not found", ctx)
	}

	var entry InitFunc
	switch fn := sym.(type) {
	case InitFunc:
		entry = fn
	case *InitFunc:
		if fn != nil {
			entry = *fn
		}
	}
	if entry == nil {
		return nil, errors.WithContextMap(errors.Newf(errors.CodePluginFormat,
			"entry symbol has type %T, want %T", sym, InitFunc(nil)), ctx)
	}

	backend, err := entry()
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodePluginInit,
			"module entry failed", ctx)
	}
	if backend == nil {
		return nil, errors.WithContextMap(errors.New(errors.CodePluginInit,
			"module entry returned no backend"), ctx)
	}
	if backend.Name() == "" {
		return nil, errors.WithContextMap(errors.New(errors.CodePluginInit,
			"backend has an empty name"), ctx)
	}
	if strings.Contains(backend.Name(), vfs.Delimiter) {
		return nil, errors.WithContextMap(errors.Newf(errors.CodePluginInit,
			"backend name %q contains %q", backend.Name(), vfs.Delimiter), ctx)
	}
	return backend, nil
}

// Discover returns the module files directly inside dir, sorted. A missing
// directory yields no modules.
func Discover(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CodePluginLoad,
			fmt.Sprintf("cannot read plugin directory %s", dir))
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
