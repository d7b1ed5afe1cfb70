// Package registry owns the set of loaded VFS backends and resolves VFS URLs
// to a backend and a backend-local path.
//
// A URL of the form "name::path" selects the backend registered as name. An
// absolute path without a qualifier selects the default backend, "localfs"
// unless configured otherwise.
package registry

import (
	stderrors "errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
	"github.com/Nazg-Gul/fm/vfs/loader"
)

// DefaultBackend is the backend selected by unqualified absolute paths.
const DefaultBackend = "localfs"

type entry struct {
	backend vfs.Backend
	loaded  *loader.Loaded
	handles atomic.Int64
}

// Registry holds loaded backends. It is safe for concurrent use; loading
// and unloading are serialized, dispatch only takes a read lock for lookup.
type Registry struct {
	mu          sync.RWMutex
	backends    map[string]*entry
	opener      loader.Opener
	defaultName string
	log         *logrus.Entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithOpener sets the module opener used by Load.
func WithOpener(o loader.Opener) Option {
	return func(r *Registry) {
		r.opener = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// WithDefault changes the backend selected by unqualified paths.
func WithDefault(name string) Option {
	return func(r *Registry) {
		r.defaultName = name
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		backends:    make(map[string]*entry),
		opener:      loader.GoPlugin{},
		defaultName: DefaultBackend,
		log:         logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("component", "registry")
	return r
}

// Default returns the name of the default backend.
func (r *Registry) Default() string {
	return r.defaultName
}

// Load loads the module at path and registers its backend. It returns the
// backend name.
func (r *Registry) Load(path string) (string, error) {
	l, err := loader.Load(r.opener, path, r.log)
	if err != nil {
		r.log.WithError(err).WithField("path", path).Warn("Module load failed")
		return "", err
	}
	if err := r.add(l.Backend, l); err != nil {
		if cerr := l.Close(); cerr != nil {
			r.log.WithError(cerr).Warn("Closing rejected module")
		}
		return "", err
	}
	return l.Name(), nil
}

// Register adds a backend linked into the binary.
func (r *Registry) Register(b vfs.Backend) error {
	if b == nil || b.Name() == "" {
		return errors.New(errors.CodePluginInit, "backend has an empty name")
	}
	return r.add(b, nil)
}

func (r *Registry) add(b vfs.Backend, l *loader.Loaded) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	if strings.Contains(name, vfs.Delimiter) {
		return errors.WithContext(
			errors.Newf(errors.CodePluginInit, "backend name %q contains %q", name, vfs.Delimiter),
			"plugin", name)
	}
	if _, exists := r.backends[name]; exists {
		return errors.WithContext(
			errors.Newf(errors.CodePluginExists, "backend %q is already loaded", name),
			"plugin", name)
	}

	if hook, ok := b.(vfs.LoadHook); ok {
		if err := hook.OnLoad(); err != nil {
			return errors.WrapWithContext(err, errors.CodePluginInit,
				"load hook failed", map[string]interface{}{"plugin": name})
		}
	}

	r.backends[name] = &entry{backend: b, loaded: l}
	r.log.WithField("plugin", name).Info("Backend registered")
	return nil
}

// Unload removes a backend. It fails with PLUGIN_BUSY while handles opened
// through the registry are still open. The unload hook's error is returned,
// but the backend is removed regardless.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.backends[name]
	if !ok {
		return notFound(name)
	}
	if n := e.handles.Load(); n > 0 {
		return errors.WithContextMap(
			errors.Newf(errors.CodePluginBusy, "backend %q has %d open files", name, n),
			map[string]interface{}{"plugin": name, "handles": n})
	}

	var hookErr error
	if hook, ok := e.backend.(vfs.UnloadHook); ok {
		if err := hook.OnUnload(); err != nil {
			hookErr = errors.WrapWithContext(err, errors.CodeCommon,
				"unload hook failed", map[string]interface{}{"plugin": name})
		}
	}
	if e.loaded != nil {
		if err := e.loaded.Close(); err != nil {
			r.log.WithError(err).WithField("plugin", name).Warn("Closing module")
		}
	}
	delete(r.backends, name)

	r.log.WithField("plugin", name).Info("Backend unloaded")
	return hookErr
}

// Close unloads every backend and returns the joined errors.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.Unload(name); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Lookup returns the backend registered as name.
func (r *Registry) Lookup(name string) (vfs.Backend, error) {
	e, err := r.entry(name)
	if err != nil {
		return nil, err
	}
	return e.backend, nil
}

// Loaded reports whether a backend named name is registered.
func (r *Registry) Loaded(name string) bool {
	_, err := r.entry(name)
	return err == nil
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenHandles returns the number of open handles on the backend.
func (r *Registry) OpenHandles(name string) int {
	e, err := r.entry(name)
	if err != nil {
		return 0
	}
	return int(e.handles.Load())
}

// Info describes a registered backend.
type Info struct {
	Name         string
	Path         string // module path, empty for linked-in backends
	Default      bool
	Handles      int
	Capabilities []vfs.Op
}

// List describes every registered backend, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.backends))
	for name, e := range r.backends {
		info := Info{
			Name:         name,
			Default:      name == r.defaultName,
			Handles:      int(e.handles.Load()),
			Capabilities: vfs.Capabilities(e.backend),
		}
		if e.loaded != nil {
			info.Path = e.loaded.Path
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (r *Registry) entry(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.backends[name]
	if !ok {
		return nil, notFound(name)
	}
	return e, nil
}

func notFound(name string) error {
	return errors.WithContext(
		errors.Newf(errors.CodePluginNotFound, "backend %q is not loaded", name),
		"plugin", name)
}
