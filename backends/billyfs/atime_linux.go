package billyfs

import (
	"io/fs"
	"syscall"
	"time"
)

type atimeInfo struct {
	fs.FileInfo
	atime time.Time
}

func (i atimeInfo) AccessTime() time.Time { return i.atime }

func (i atimeInfo) Unwrap() fs.FileInfo { return i.FileInfo }

// withAccessTime exposes the access time recorded in the stat buffer.
func withAccessTime(fi fs.FileInfo) fs.FileInfo {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return fi
	}
	return atimeInfo{FileInfo: fi, atime: time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec))}
}
