package sftp

import (
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

const posixRenameExtension = "posix-rename@openssh.com"

// Backend is a VFS backend over an SFTP session. Paths are absolute paths
// on the remote host.
type Backend struct {
	name    string
	client  *sftp.Client
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

// New dials the host and opens an SFTP session.
func New(cfg Config) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sshConfig, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	sshClient, err := ssh.Dial("tcp", cfg.address(), sshConfig)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeIO, "ssh dial failed",
			map[string]interface{}{"address": cfg.address()})
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, errors.Wrap(err, errors.CodeIO, "sftp client failed")
	}

	return NewWithClient(cfg.Name, client, sshClient)
}

// NewWithClient wraps an existing SFTP client. closers are closed after
// the client when the backend is unloaded.
func NewWithClient(name string, client *sftp.Client, closers ...io.Closer) (*Backend, error) {
	if name == "" {
		name = DefaultName
	}
	if strings.Contains(name, vfs.Delimiter) {
		return nil, errors.Newf(errors.CodeInvalidArgument, "backend name %q contains %q", name, vfs.Delimiter)
	}
	return &Backend{name: name, client: client, closers: closers}, nil
}

func (b *Backend) Name() string { return b.name }

// OnUnload closes the SFTP session and the SSH connection.
func (b *Backend) OnUnload() error {
	b.closeOnce.Do(func() {
		var errs []error
		if err := b.client.Close(); err != nil {
			errs = append(errs, err)
		}
		for _, c := range b.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			b.closeErr = errs[0]
		}
	})
	return b.closeErr
}

// exists reports whether name exists without following links.
func (b *Backend) exists(name string) bool {
	_, err := b.client.Lstat(name)
	return err == nil
}

// Open opens a remote file. The SFTP protocol has no "already exists"
// status, so a failed exclusive create is checked against the remote state.
// O_APPEND is emulated by seeking to the end since writes carry explicit
// offsets.
func (b *Backend) Open(name string, flag int, perm fs.FileMode) (vfs.File, error) {
	f, err := b.client.OpenFile(name, flag&^os.O_APPEND)
	if err != nil {
		if flag&os.O_EXCL != 0 && b.exists(name) {
			return nil, pathError("open", name, fs.ErrExist)
		}
		return nil, pathError("open", name, err)
	}
	if flag&os.O_CREATE != 0 && perm != 0 {
		// Best effort; servers apply their own default mode.
		_ = b.client.Chmod(name, perm)
	}
	if flag&os.O_APPEND != 0 {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			_ = f.Close()
			return nil, pathError("open", name, err)
		}
	}
	return f, nil
}

// Unlink removes a file or link. Directories are refused.
func (b *Backend) Unlink(name string) error {
	fi, err := b.client.Lstat(name)
	if err != nil {
		return pathError("unlink", name, err)
	}
	if fi.IsDir() {
		return pathError("unlink", name, syscall.EISDIR)
	}
	return pathError("unlink", name, b.client.Remove(name))
}

func (b *Backend) Mkdir(name string, perm fs.FileMode) error {
	if err := b.client.Mkdir(name); err != nil {
		if b.exists(name) {
			return pathError("mkdir", name, fs.ErrExist)
		}
		return pathError("mkdir", name, err)
	}
	if perm != 0 {
		_ = b.client.Chmod(name, perm)
	}
	return nil
}

// Rmdir removes an empty directory. Some servers implement rmdir with a
// plain remove, so the type is checked first.
func (b *Backend) Rmdir(name string) error {
	fi, err := b.client.Lstat(name)
	if err != nil {
		return pathError("rmdir", name, err)
	}
	if !fi.IsDir() {
		return pathError("rmdir", name, syscall.ENOTDIR)
	}
	return pathError("rmdir", name, b.client.RemoveDirectory(name))
}

func (b *Backend) Chmod(name string, mode fs.FileMode) error {
	return pathError("chmod", name, b.client.Chmod(name, mode))
}

func (b *Backend) Chown(name string, uid, gid int) error {
	return pathError("chown", name, b.client.Chown(name, uid, gid))
}

// Rename uses the POSIX rename extension when the server has it, so an
// existing target is replaced atomically.
func (b *Backend) Rename(oldname, newname string) error {
	if _, ok := b.client.HasExtension(posixRenameExtension); ok {
		return pathError("rename", oldname, b.client.PosixRename(oldname, newname))
	}
	return pathError("rename", oldname, b.client.Rename(oldname, newname))
}

func (b *Backend) Stat(name string) (fs.FileInfo, error) {
	fi, err := b.client.Stat(name)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return withAccessTime(fi), nil
}

func (b *Backend) Lstat(name string) (fs.FileInfo, error) {
	fi, err := b.client.Lstat(name)
	if err != nil {
		return nil, pathError("lstat", name, err)
	}
	return withAccessTime(fi), nil
}

// Scandir lists a directory. Symbolic links are followed with an extra
// stat per link.
func (b *Backend) Scandir(name string) ([]*vfs.DirEntry, error) {
	infos, err := b.client.ReadDir(name)
	if err != nil {
		if fi, sErr := b.client.Stat(name); sErr == nil && !fi.IsDir() {
			return nil, pathError("scandir", name, syscall.ENOTDIR)
		}
		return nil, pathError("scandir", name, err)
	}

	entries := make([]*vfs.DirEntry, 0, len(infos))
	for _, info := range infos {
		lstat := withAccessTime(info)
		stat := lstat
		if info.Mode()&fs.ModeSymlink != 0 {
			stat = nil
			if fi, err := b.client.Stat(path.Join(name, info.Name())); err == nil {
				stat = withAccessTime(fi)
			}
		}
		entries = append(entries, vfs.NewDirEntry(info.Name(), lstat, stat, nil))
	}
	return entries, nil
}

// Utimes sets access and modification times. The protocol carries whole
// seconds.
func (b *Backend) Utimes(name string, atime, mtime time.Time) error {
	return pathError("utimes", name, b.client.Chtimes(name, atime, mtime))
}

func (b *Backend) Symlink(target, name string) error {
	return pathError("symlink", name, b.client.Symlink(target, name))
}

func (b *Backend) Link(oldname, newname string) error {
	return pathError("link", newname, b.client.Link(oldname, newname))
}

func (b *Backend) Readlink(name string) (string, error) {
	target, err := b.client.ReadLink(name)
	if err != nil {
		return "", pathError("readlink", name, err)
	}
	return target, nil
}

func (b *Backend) MoveStrategy(_, _ string) vfs.Strategy {
	return vfs.MoveRename
}

func pathError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &fs.PathError{Op: op, Path: name, Err: err}
}

// statInfo exposes the access time the server reports.
type statInfo struct {
	fs.FileInfo
	atime time.Time
}

func (s statInfo) AccessTime() time.Time { return s.atime }

func withAccessTime(fi fs.FileInfo) fs.FileInfo {
	if st, ok := fi.Sys().(*sftp.FileStat); ok {
		return statInfo{FileInfo: fi, atime: time.Unix(int64(st.Atime), 0)}
	}
	return fi
}

var (
	_ vfs.UnloadHook     = (*Backend)(nil)
	_ vfs.OpenFS         = (*Backend)(nil)
	_ vfs.UnlinkFS       = (*Backend)(nil)
	_ vfs.MkdirFS        = (*Backend)(nil)
	_ vfs.RmdirFS        = (*Backend)(nil)
	_ vfs.ChmodFS        = (*Backend)(nil)
	_ vfs.ChownFS        = (*Backend)(nil)
	_ vfs.RenameFS       = (*Backend)(nil)
	_ vfs.StatFS         = (*Backend)(nil)
	_ vfs.LstatFS        = (*Backend)(nil)
	_ vfs.ScandirFS      = (*Backend)(nil)
	_ vfs.UtimesFS       = (*Backend)(nil)
	_ vfs.SymlinkFS      = (*Backend)(nil)
	_ vfs.LinkFS         = (*Backend)(nil)
	_ vfs.ReadlinkFS     = (*Backend)(nil)
	_ vfs.MoveStrategyFS = (*Backend)(nil)

	_ vfs.Handle = (*sftp.File)(nil)
)
