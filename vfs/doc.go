// Package vfs defines the contract between the file manager and its storage
// backends.
//
// A backend is any value implementing Backend. Everything else it can do is
// expressed through optional capability interfaces, one per primitive:
//
//   - OpenFS, StatFS, LstatFS, ScandirFS: lookup and reading
//   - MkdirFS, RmdirFS, UnlinkFS, RenameFS: namespace changes
//   - ChmodFS, ChownFS, UtimeFS, UtimesFS: metadata
//   - SymlinkFS, LinkFS, ReadlinkFS, MknodFS: special nodes
//   - MoveStrategyFS: how a move between two paths should be performed
//
// Handle-level primitives (close, read, write, lseek) are capabilities of the
// File returned by Open: io.Closer is mandatory, io.Reader, io.Writer and
// io.Seeker are optional.
//
// # Dispatch
//
// Callers never type-assert a backend themselves. The package level functions
// (Open, Stat, Mkdir, Read and so on) do it and return a uniform
// METHOD_NOT_FOUND error naming the primitive and the backend when the
// capability is absent:
//
//	info, err := vfs.Stat(backend, "/etc/hosts")
//	if errors.GetCode(err) == errors.CodeMethodNotFound {
//	    // backend cannot stat
//	}
//
// Errors returned by a backend are translated into coded errors carrying the
// method, plugin and path in their context.
//
// # URLs
//
// A VFS URL is either "qualifier::path", naming the backend explicitly, or an
// absolute path starting with "/", which belongs to the default backend.
// SplitURL, JoinURL, BaseURL and CleanURL manipulate URLs without resolving
// them; resolution is done by the registry package.
package vfs
