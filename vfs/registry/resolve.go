package registry

import (
	"strings"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// Path is a resolved URL.
type Path struct {
	Backend vfs.Backend
	Name    string // path local to the backend
	URL     string
}

// Resolve maps url to a backend and a backend-local path.
//
// "name::path" selects the backend name and fails with PLUGIN_NOT_FOUND if
// it is not loaded. A path starting with "/" selects the default backend.
// Anything else, including an empty qualifier, is INVALID_URL.
func (r *Registry) Resolve(url string) (Path, error) {
	qualifier, name, ok := vfs.SplitURL(url)
	switch {
	case ok && qualifier == "":
		return Path{}, invalidURL(url, "empty backend qualifier")
	case ok:
	case strings.HasPrefix(url, "/"):
		qualifier = r.defaultName
	default:
		return Path{}, invalidURL(url, "path is neither qualified nor absolute")
	}

	e, err := r.entry(qualifier)
	if err != nil {
		return Path{}, errors.WithContext(err, "url", url)
	}
	return Path{Backend: e.backend, Name: name, URL: url}, nil
}

func invalidURL(url, reason string) error {
	return errors.WithContext(errors.New(errors.CodeInvalidURL, reason), "url", url)
}

// SameBackend reports whether both URLs resolve to the same backend.
func (r *Registry) SameBackend(a, b string) bool {
	pa, err := r.Resolve(a)
	if err != nil {
		return false
	}
	pb, err := r.Resolve(b)
	if err != nil {
		return false
	}
	return pa.Backend.Name() == pb.Backend.Name()
}

// SamePath reports whether both URLs resolve to the same backend and the
// same cleaned local path.
func (r *Registry) SamePath(a, b string) bool {
	pa, err := r.Resolve(vfs.CleanURL(a))
	if err != nil {
		return false
	}
	pb, err := r.Resolve(vfs.CleanURL(b))
	if err != nil {
		return false
	}
	return pa.Backend.Name() == pb.Backend.Name() && pa.Name == pb.Name
}

// Contains reports whether child lies inside parent (or is parent) once
// both are resolved.
func (r *Registry) Contains(parent, child string) bool {
	pp, err := r.Resolve(vfs.CleanURL(parent))
	if err != nil {
		return false
	}
	pc, err := r.Resolve(vfs.CleanURL(child))
	if err != nil {
		return false
	}
	if pp.Backend.Name() != pc.Backend.Name() {
		return false
	}
	return vfs.WithinURL(pp.Name, pc.Name)
}
