//go:build !linux

package billyfs

import "io/fs"

func withAccessTime(fi fs.FileInfo) fs.FileInfo {
	return fi
}
