package registry

import (
	"io/fs"
	"time"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// Open opens url. The handle counts against the backend until closed.
func (r *Registry) Open(url string, flag int, perm fs.FileMode) (vfs.Handle, error) {
	p, err := r.Resolve(url)
	if err != nil {
		return nil, err
	}

	// The slot is taken under the lock Unload checks it with.
	r.mu.RLock()
	e := r.backends[p.Backend.Name()]
	if e != nil && e.backend == p.Backend {
		e.handles.Add(1)
	}
	r.mu.RUnlock()
	if e == nil || e.backend != p.Backend {
		// Unloaded after resolve.
		return nil, notFound(p.Backend.Name())
	}

	f, err := vfs.Open(p.Backend, p.Name, flag, perm)
	if err != nil {
		e.handles.Add(-1)
		return nil, r.debug(err, url)
	}
	return newHandle(e, f), nil
}

func (r *Registry) Stat(url string) (fs.FileInfo, error) {
	p, err := r.Resolve(url)
	if err != nil {
		return nil, err
	}
	fi, err := vfs.Stat(p.Backend, p.Name)
	return fi, r.debug(err, url)
}

func (r *Registry) Lstat(url string) (fs.FileInfo, error) {
	p, err := r.Resolve(url)
	if err != nil {
		return nil, err
	}
	fi, err := vfs.Lstat(p.Backend, p.Name)
	return fi, r.debug(err, url)
}

// IsDir reports whether url is a directory, following links.
func (r *Registry) IsDir(url string) (bool, error) {
	fi, err := r.Stat(url)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

func (r *Registry) Mkdir(url string, perm fs.FileMode) error {
	p, err := r.Resolve(url)
	if err != nil {
		return err
	}
	return r.debug(vfs.Mkdir(p.Backend, p.Name, perm), url)
}

func (r *Registry) Chmod(url string, mode fs.FileMode) error {
	p, err := r.Resolve(url)
	if err != nil {
		return err
	}
	return r.debug(vfs.Chmod(p.Backend, p.Name, mode), url)
}

func (r *Registry) Unlink(url string) error {
	p, err := r.Resolve(url)
	if err != nil {
		return err
	}
	return r.debug(vfs.Unlink(p.Backend, p.Name), url)
}

func (r *Registry) Rmdir(url string) error {
	p, err := r.Resolve(url)
	if err != nil {
		return err
	}
	return r.debug(vfs.Rmdir(p.Backend, p.Name), url)
}

// Rename renames within one backend. URLs on different backends fail with
// INVALID_ARGUMENT.
func (r *Registry) Rename(src, dst string) error {
	ps, err := r.Resolve(src)
	if err != nil {
		return err
	}
	pd, err := r.Resolve(dst)
	if err != nil {
		return err
	}
	if ps.Backend.Name() != pd.Backend.Name() {
		return errors.WithContextMap(
			errors.New(errors.CodeInvalidArgument, "rename across backends"),
			map[string]interface{}{"src": src, "dst": dst})
	}
	return r.debug(vfs.Rename(ps.Backend, ps.Name, pd.Name), src)
}

// Scandir lists url. The caller must release the batch.
func (r *Registry) Scandir(url string) (*vfs.Batch, error) {
	p, err := r.Resolve(url)
	if err != nil {
		return nil, err
	}
	b, err := vfs.Scandir(p.Backend, p.Name)
	return b, r.debug(err, url)
}

// Utimes sets access and modification times, falling back to the second
// precision primitive when the backend lacks the full precision one.
func (r *Registry) Utimes(url string, atime, mtime time.Time) error {
	p, err := r.Resolve(url)
	if err != nil {
		return err
	}
	if vfs.Supports(p.Backend, vfs.OpUtimes) || !vfs.Supports(p.Backend, vfs.OpUtime) {
		return r.debug(vfs.Utimes(p.Backend, p.Name, atime, mtime), url)
	}
	return r.debug(vfs.Utime(p.Backend, p.Name, atime.Unix(), mtime.Unix()), url)
}

// MoveStrategy returns how src should be moved to dst. URLs on different
// backends always copy.
func (r *Registry) MoveStrategy(src, dst string) vfs.Strategy {
	ps, err := r.Resolve(src)
	if err != nil {
		return vfs.MoveCopy
	}
	pd, err := r.Resolve(dst)
	if err != nil || ps.Backend.Name() != pd.Backend.Name() {
		return vfs.MoveCopy
	}
	return vfs.MoveStrategy(ps.Backend, ps.Name, pd.Name)
}

func (r *Registry) debug(err error, url string) error {
	if err != nil {
		r.log.WithError(err).WithField("url", url).Debug("Dispatch failed")
	}
	return err
}
