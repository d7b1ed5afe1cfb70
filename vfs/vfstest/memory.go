package vfstest

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Nazg-Gul/fm/vfs"
)

// Memory is an in-memory backend implementing every VFS capability, built
// for tests. Beyond the backend contract it can inject faults, limit the
// size of individual reads and count what callers did with it: opens per
// path, open handles and directory entries handed out and released.
type Memory struct {
	mu    sync.Mutex
	name  string
	nodes map[string]*memNode
	now   func() time.Time

	hook      func(op vfs.Op, name string) error
	readChunk int

	calls    map[vfs.Op]int
	opens    map[string]int
	open     int
	listed   int
	released int
}

type memNode struct {
	mode   fs.FileMode
	data   []byte
	target string
	atime  time.Time
	mtime  time.Time
	uid    int
	gid    int
	dev    uint64
}

// NewMemory creates an empty backend with a root directory.
func NewMemory(name string) *Memory {
	m := &Memory{
		name:  name,
		nodes: make(map[string]*memNode),
		now:   time.Now,
		calls: make(map[vfs.Op]int),
		opens: make(map[string]int),
	}
	now := m.now()
	m.nodes["/"] = &memNode{mode: fs.ModeDir | 0o755, atime: now, mtime: now}
	return m
}

func (m *Memory) Name() string { return m.name }

// OnOp installs a hook run before every primitive, including reads and
// writes on open handles. A non-nil result fails the primitive with that
// error. The hook runs without the backend lock held.
func (m *Memory) OnOp(hook func(op vfs.Op, name string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// Fail makes the next times calls of op on name fail with err. A negative
// times fails forever. It replaces any hook installed with OnOp.
func (m *Memory) Fail(op vfs.Op, name string, err error, times int) {
	name = clean(name)
	var mu sync.Mutex
	m.OnOp(func(o vfs.Op, n string) error {
		mu.Lock()
		defer mu.Unlock()
		if o != op || n != name || times == 0 {
			return nil
		}
		if times > 0 {
			times--
		}
		return err
	})
}

// SetReadChunk caps the bytes returned by a single read. Zero removes the cap.
func (m *Memory) SetReadChunk(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readChunk = n
}

// SetClock replaces the time source used for new nodes.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Calls returns how often op was invoked.
func (m *Memory) Calls(op vfs.Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Opens returns how often name was opened, successfully or not.
func (m *Memory) Opens(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[clean(name)]
}

// OpenFiles returns the number of handles not closed yet.
func (m *Memory) OpenFiles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Listed returns the number of directory entries handed out by Scandir.
func (m *Memory) Listed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listed
}

// Released returns the number of entry releases observed.
func (m *Memory) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// WriteFile creates or replaces a regular file, bypassing hooks.
func (m *Memory) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = clean(name)
	if err := m.checkParent("write", name); err != nil {
		return err
	}
	now := m.now()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.nodes[name] = &memNode{mode: perm.Perm(), data: buf, atime: now, mtime: now}
	return nil
}

// MkdirAll creates a directory and its parents, bypassing hooks.
func (m *Memory) MkdirAll(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = clean(name)
	var built string
	for _, part := range strings.Split(strings.TrimPrefix(name, "/"), "/") {
		if part == "" {
			continue
		}
		built += "/" + part
		if n, ok := m.nodes[built]; ok {
			if !n.mode.IsDir() {
				return pathErr("mkdir", built, syscall.ENOTDIR)
			}
			continue
		}
		now := m.now()
		m.nodes[built] = &memNode{mode: fs.ModeDir | perm.Perm(), atime: now, mtime: now}
	}
	return nil
}

// ReadFile returns the contents of a regular file, bypassing hooks.
func (m *Memory) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _, err := m.follow("open", clean(name))
	if err != nil {
		return nil, err
	}
	if n.mode.IsDir() {
		return nil, pathErr("read", name, syscall.EISDIR)
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

// SetTimes sets access and modification times, bypassing hooks.
func (m *Memory) SetTimes(name string, atime, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[clean(name)]
	if !ok {
		return pathErr("chtimes", name, fs.ErrNotExist)
	}
	n.atime, n.mtime = atime, mtime
	return nil
}

// Exists reports whether name exists, without following links.
func (m *Memory) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.nodes[clean(name)]
	return ok
}

// before counts op and runs the hook.
func (m *Memory) before(op vfs.Op, name string) error {
	m.mu.Lock()
	m.calls[op]++
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		return hook(op, name)
	}
	return nil
}

func (m *Memory) Open(name string, flag int, perm fs.FileMode) (vfs.File, error) {
	name = clean(name)
	m.mu.Lock()
	m.opens[name]++
	m.mu.Unlock()

	if err := m.before(vfs.OpOpen, name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, resolved, err := m.follow("open", name)
	switch {
	case err == nil:
		if flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0 {
			return nil, pathErr("open", name, fs.ErrExist)
		}
		if n.mode.IsDir() && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
			return nil, pathErr("open", name, syscall.EISDIR)
		}
	case errors.Is(err, fs.ErrNotExist) && flag&os.O_CREATE != 0:
		if perr := m.checkParent("open", name); perr != nil {
			return nil, perr
		}
		now := m.now()
		n = &memNode{mode: perm.Perm(), atime: now, mtime: now}
		m.nodes[name] = n
		resolved = name
	default:
		return nil, err
	}

	if flag&os.O_TRUNC != 0 && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		n.data = n.data[:0]
		n.mtime = m.now()
	}

	m.open++
	f := &memFile{m: m, node: n, name: name, path: resolved, flag: flag}
	if flag&os.O_APPEND != 0 {
		f.offset = int64(len(n.data))
	}
	return f, nil
}

func (m *Memory) Unlink(name string) error {
	name = clean(name)
	if err := m.before(vfs.OpUnlink, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[name]
	if !ok {
		return pathErr("unlink", name, fs.ErrNotExist)
	}
	if n.mode.IsDir() {
		return pathErr("unlink", name, syscall.EISDIR)
	}
	delete(m.nodes, name)
	return nil
}

func (m *Memory) Mkdir(name string, perm fs.FileMode) error {
	name = clean(name)
	if err := m.before(vfs.OpMkdir, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[name]; ok {
		return pathErr("mkdir", name, fs.ErrExist)
	}
	if err := m.checkParent("mkdir", name); err != nil {
		return err
	}
	now := m.now()
	m.nodes[name] = &memNode{mode: fs.ModeDir | perm.Perm(), atime: now, mtime: now}
	return nil
}

func (m *Memory) Rmdir(name string) error {
	name = clean(name)
	if err := m.before(vfs.OpRmdir, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[name]
	if !ok {
		return pathErr("rmdir", name, fs.ErrNotExist)
	}
	if !n.mode.IsDir() {
		return pathErr("rmdir", name, syscall.ENOTDIR)
	}
	if len(m.children(name)) > 0 {
		return pathErr("rmdir", name, syscall.ENOTEMPTY)
	}
	delete(m.nodes, name)
	return nil
}

func (m *Memory) Chmod(name string, mode fs.FileMode) error {
	name = clean(name)
	if err := m.before(vfs.OpChmod, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _, err := m.follow("chmod", name)
	if err != nil {
		return err
	}
	n.mode = n.mode&^fs.ModePerm | mode.Perm()
	return nil
}

func (m *Memory) Chown(name string, uid, gid int) error {
	name = clean(name)
	if err := m.before(vfs.OpChown, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _, err := m.follow("chown", name)
	if err != nil {
		return err
	}
	n.uid, n.gid = uid, gid
	return nil
}

func (m *Memory) Rename(oldname, newname string) error {
	oldname, newname = clean(oldname), clean(newname)
	if err := m.before(vfs.OpRename, oldname); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[oldname]
	if !ok {
		return pathErr("rename", oldname, fs.ErrNotExist)
	}
	if err := m.checkParent("rename", newname); err != nil {
		return err
	}
	if oldname == newname {
		return nil
	}
	if n.mode.IsDir() && strings.HasPrefix(newname, oldname+"/") {
		return pathErr("rename", newname, fs.ErrInvalid)
	}
	if existing, ok := m.nodes[newname]; ok {
		if existing.mode.IsDir() && (!n.mode.IsDir() || len(m.children(newname)) > 0) {
			return pathErr("rename", newname, fs.ErrExist)
		}
	}

	moved := map[string]*memNode{newname: n}
	prefix := oldname + "/"
	for p, child := range m.nodes {
		if strings.HasPrefix(p, prefix) {
			moved[newname+"/"+strings.TrimPrefix(p, prefix)] = child
			delete(m.nodes, p)
		}
	}
	delete(m.nodes, oldname)
	for p, node := range moved {
		m.nodes[p] = node
	}
	return nil
}

func (m *Memory) Stat(name string) (fs.FileInfo, error) {
	name = clean(name)
	if err := m.before(vfs.OpStat, name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _, err := m.follow("stat", name)
	if err != nil {
		return nil, err
	}
	return n.info(path.Base(name)), nil
}

func (m *Memory) Lstat(name string) (fs.FileInfo, error) {
	name = clean(name)
	if err := m.before(vfs.OpLstat, name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[name]
	if !ok {
		return nil, pathErr("lstat", name, fs.ErrNotExist)
	}
	return n.info(path.Base(name)), nil
}

// Scandir lists name including "." and "..". Every entry counts as listed
// and reports its release back to the backend.
func (m *Memory) Scandir(name string) ([]*vfs.DirEntry, error) {
	name = clean(name)
	if err := m.before(vfs.OpScandir, name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, resolved, err := m.follow("scandir", name)
	if err != nil {
		return nil, err
	}
	if !dir.mode.IsDir() {
		return nil, pathErr("scandir", name, syscall.ENOTDIR)
	}

	release := func() {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
	}

	dot := dir.info(".")
	entries := []*vfs.DirEntry{
		vfs.NewDirEntry(".", dot, dot, release),
		vfs.NewDirEntry("..", dot, dot, release),
	}
	for _, child := range m.children(resolved) {
		n := m.nodes[child]
		base := path.Base(child)
		lstat := n.info(base)
		var stat fs.FileInfo = lstat
		if n.mode&fs.ModeSymlink != 0 {
			stat = nil
			if target, _, err := m.follow("stat", child); err == nil {
				stat = target.info(base)
			}
		}
		entries = append(entries, vfs.NewDirEntry(base, lstat, stat, release))
	}
	m.listed += len(entries)
	return entries, nil
}

func (m *Memory) Utime(name string, atime, mtime int64) error {
	name = clean(name)
	if err := m.before(vfs.OpUtime, name); err != nil {
		return err
	}
	return m.setTimes("utime", name, time.Unix(atime, 0), time.Unix(mtime, 0))
}

func (m *Memory) Utimes(name string, atime, mtime time.Time) error {
	name = clean(name)
	if err := m.before(vfs.OpUtimes, name); err != nil {
		return err
	}
	return m.setTimes("utimes", name, atime, mtime)
}

func (m *Memory) setTimes(op, name string, atime, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _, err := m.follow(op, name)
	if err != nil {
		return err
	}
	n.atime, n.mtime = atime, mtime
	return nil
}

func (m *Memory) Symlink(target, name string) error {
	name = clean(name)
	if err := m.before(vfs.OpSymlink, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[name]; ok {
		return pathErr("symlink", name, fs.ErrExist)
	}
	if err := m.checkParent("symlink", name); err != nil {
		return err
	}
	now := m.now()
	m.nodes[name] = &memNode{mode: fs.ModeSymlink | 0o777, target: target, atime: now, mtime: now}
	return nil
}

func (m *Memory) Link(oldname, newname string) error {
	oldname, newname = clean(oldname), clean(newname)
	if err := m.before(vfs.OpLink, newname); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[oldname]
	if !ok {
		return pathErr("link", oldname, fs.ErrNotExist)
	}
	if n.mode.IsDir() {
		return pathErr("link", oldname, fs.ErrPermission)
	}
	if _, ok := m.nodes[newname]; ok {
		return pathErr("link", newname, fs.ErrExist)
	}
	if err := m.checkParent("link", newname); err != nil {
		return err
	}
	m.nodes[newname] = n
	return nil
}

func (m *Memory) Readlink(name string) (string, error) {
	name = clean(name)
	if err := m.before(vfs.OpReadlink, name); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[name]
	if !ok {
		return "", pathErr("readlink", name, fs.ErrNotExist)
	}
	if n.mode&fs.ModeSymlink == 0 {
		return "", pathErr("readlink", name, fs.ErrInvalid)
	}
	return n.target, nil
}

func (m *Memory) Mknod(name string, mode fs.FileMode, dev uint64) error {
	name = clean(name)
	if err := m.before(vfs.OpMknod, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[name]; ok {
		return pathErr("mknod", name, fs.ErrExist)
	}
	if err := m.checkParent("mknod", name); err != nil {
		return err
	}
	now := m.now()
	m.nodes[name] = &memNode{mode: mode, dev: dev, atime: now, mtime: now}
	return nil
}

// MoveStrategy always renames.
func (m *Memory) MoveStrategy(_, _ string) vfs.Strategy {
	_ = m.before(vfs.OpMoveStrategy, "")
	return vfs.MoveRename
}

// follow resolves name, following symbolic links in every component. Must
// be called with mu held.
func (m *Memory) follow(op, name string) (*memNode, string, error) {
	parts := split(name)
	cur := "/"
	hops := 0
	for i := 0; i < len(parts); {
		next := path.Join(cur, parts[i])
		n, ok := m.nodes[next]
		if !ok {
			return nil, "", pathErr(op, name, fs.ErrNotExist)
		}
		if n.mode&fs.ModeSymlink != 0 {
			if hops++; hops > 40 {
				return nil, "", pathErr(op, name, syscall.ELOOP)
			}
			target := n.target
			if !path.IsAbs(target) {
				target = path.Join(cur, target)
			}
			parts = append(split(target), parts[i+1:]...)
			cur, i = "/", 0
			continue
		}
		if i < len(parts)-1 && !n.mode.IsDir() {
			return nil, "", pathErr(op, name, syscall.ENOTDIR)
		}
		cur = next
		i++
	}
	return m.nodes[cur], cur, nil
}

func split(name string) []string {
	var parts []string
	for _, p := range strings.Split(clean(name), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// checkParent requires the parent of name to be an existing directory.
func (m *Memory) checkParent(op, name string) error {
	parent := path.Dir(name)
	n, _, err := m.follow(op, parent)
	if err != nil {
		return pathErr(op, name, fs.ErrNotExist)
	}
	if !n.mode.IsDir() {
		return pathErr(op, name, syscall.ENOTDIR)
	}
	return nil
}

// children returns the direct children of dir, sorted.
func (m *Memory) children(dir string) []string {
	prefix := dir + "/"
	if dir == "/" {
		prefix = "/"
	}
	var out []string
	for p := range m.nodes {
		if p == dir || !strings.HasPrefix(p, prefix) {
			continue
		}
		if !strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (n *memNode) info(name string) fs.FileInfo {
	return memInfo{
		name:  name,
		size:  int64(len(n.data)),
		mode:  n.mode,
		mtime: n.mtime,
		atime: n.atime,
		node:  n,
	}
}

// memInfo carries its node in Sys, so infos of one node (hard links
// included) compare equal under vfs.SameFile.
type memInfo struct {
	name  string
	size  int64
	mode  fs.FileMode
	mtime time.Time
	atime time.Time
	node  *memNode
}

func (i memInfo) Name() string          { return i.name }
func (i memInfo) Size() int64           { return i.size }
func (i memInfo) Mode() fs.FileMode     { return i.mode }
func (i memInfo) ModTime() time.Time    { return i.mtime }
func (i memInfo) AccessTime() time.Time { return i.atime }
func (i memInfo) IsDir() bool           { return i.mode.IsDir() }
func (i memInfo) Sys() any              { return i.node }

type memFile struct {
	m      *Memory
	node   *memNode
	name   string
	path   string
	flag   int
	offset int64
	closed bool
}

func (f *memFile) Name() string { return f.name }

func (f *memFile) Read(p []byte) (int, error) {
	if err := f.m.before(vfs.OpRead, f.name); err != nil {
		return 0, err
	}
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if f.flag&os.O_WRONLY != 0 {
		return 0, pathErr("read", f.name, fs.ErrPermission)
	}
	if f.node.mode.IsDir() {
		return 0, pathErr("read", f.name, syscall.EISDIR)
	}
	if f.offset >= int64(len(f.node.data)) {
		return 0, io.EOF
	}
	if f.m.readChunk > 0 && len(p) > f.m.readChunk {
		p = p[:f.m.readChunk]
	}
	n := copy(p, f.node.data[f.offset:])
	f.offset += int64(n)
	f.node.atime = f.m.now()
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if err := f.m.before(vfs.OpWrite, f.name); err != nil {
		return 0, err
	}
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if f.flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return 0, pathErr("write", f.name, fs.ErrPermission)
	}
	if f.flag&os.O_APPEND != 0 {
		f.offset = int64(len(f.node.data))
	}
	end := f.offset + int64(len(p))
	if end > int64(len(f.node.data)) {
		grown := make([]byte, end)
		copy(grown, f.node.data)
		f.node.data = grown
	}
	copy(f.node.data[f.offset:], p)
	f.offset = end
	f.node.mtime = f.m.now()
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	if err := f.m.before(vfs.OpLseek, f.name); err != nil {
		return 0, err
	}
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		base = int64(len(f.node.data))
	default:
		return 0, pathErr("seek", f.name, fs.ErrInvalid)
	}
	if base+offset < 0 {
		return 0, pathErr("seek", f.name, fs.ErrInvalid)
	}
	f.offset = base + offset
	return f.offset, nil
}

func (f *memFile) Close() error {
	if err := f.m.before(vfs.OpClose, f.name); err != nil {
		return err
	}
	f.m.mu.Lock()
	defer f.m.mu.Unlock()

	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true
	f.m.open--
	return nil
}

func clean(name string) string {
	return path.Clean("/" + name)
}

func pathErr(op, name string, err error) error {
	return &fs.PathError{Op: op, Path: name, Err: err}
}
