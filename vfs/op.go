package vfs

// Op identifies a VFS primitive.
type Op int

const (
	OpOpen Op = iota
	OpClose
	OpRead
	OpWrite
	OpUnlink
	OpMkdir
	OpRmdir
	OpChmod
	OpChown
	OpRename
	OpStat
	OpLstat
	OpScandir
	OpLseek
	OpUtime
	OpUtimes
	OpSymlink
	OpLink
	OpReadlink
	OpMknod
	OpMoveStrategy
)

var opNames = [...]string{
	OpOpen:         "open",
	OpClose:        "close",
	OpRead:         "read",
	OpWrite:        "write",
	OpUnlink:       "unlink",
	OpMkdir:        "mkdir",
	OpRmdir:        "rmdir",
	OpChmod:        "chmod",
	OpChown:        "chown",
	OpRename:       "rename",
	OpStat:         "stat",
	OpLstat:        "lstat",
	OpScandir:      "scandir",
	OpLseek:        "lseek",
	OpUtime:        "utime",
	OpUtimes:       "utimes",
	OpSymlink:      "symlink",
	OpLink:         "link",
	OpReadlink:     "readlink",
	OpMknod:        "mknod",
	OpMoveStrategy: "move-strategy",
}

// Ops lists every primitive in table order.
func Ops() []Op {
	ops := make([]Op, len(opNames))
	for i := range opNames {
		ops[i] = Op(i)
	}
	return ops
}

// String returns the stable primitive name used in error context.
func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "unknown"
	}
	return opNames[o]
}

// Supports reports whether b implements op. Handle-level primitives (close,
// read, write, lseek) depend on the handle and are reported as supported
// whenever the backend can open files.
func Supports(b Backend, op Op) bool {
	var ok bool
	switch op {
	case OpOpen, OpClose, OpRead, OpWrite, OpLseek:
		_, ok = b.(OpenFS)
	case OpUnlink:
		_, ok = b.(UnlinkFS)
	case OpMkdir:
		_, ok = b.(MkdirFS)
	case OpRmdir:
		_, ok = b.(RmdirFS)
	case OpChmod:
		_, ok = b.(ChmodFS)
	case OpChown:
		_, ok = b.(ChownFS)
	case OpRename:
		_, ok = b.(RenameFS)
	case OpStat:
		_, ok = b.(StatFS)
	case OpLstat:
		_, ok = b.(LstatFS)
	case OpScandir:
		_, ok = b.(ScandirFS)
	case OpUtime:
		_, ok = b.(UtimeFS)
	case OpUtimes:
		_, ok = b.(UtimesFS)
	case OpSymlink:
		_, ok = b.(SymlinkFS)
	case OpLink:
		_, ok = b.(LinkFS)
	case OpReadlink:
		_, ok = b.(ReadlinkFS)
	case OpMknod:
		_, ok = b.(MknodFS)
	case OpMoveStrategy:
		_, ok = b.(MoveStrategyFS)
	}
	return ok
}

// Capabilities returns the primitives b supports, in table order.
func Capabilities(b Backend) []Op {
	var ops []Op
	for _, op := range Ops() {
		if Supports(b, op) {
			ops = append(ops, op)
		}
	}
	return ops
}
