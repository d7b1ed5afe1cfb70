package vfs

import (
	"io/fs"
	"sort"
)

// EntryType classifies a directory entry without following links.
type EntryType int

const (
	EntryOther EntryType = iota
	EntryFile
	EntryDir
	EntrySymlink
)

func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	case EntrySymlink:
		return "symlink"
	default:
		return "other"
	}
}

// TypeOf classifies mode.
func TypeOf(mode fs.FileMode) EntryType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return EntrySymlink
	case mode.IsDir():
		return EntryDir
	case mode.IsRegular():
		return EntryFile
	default:
		return EntryOther
	}
}

// DirEntry is one element of a directory listing.
//
// Stat follows symbolic links and is nil for a dangling link; Lstat
// describes the entry itself. An entry must be released exactly once,
// normally by the Batch that owns it.
type DirEntry struct {
	Name  string
	Type  EntryType
	Stat  fs.FileInfo
	Lstat fs.FileInfo

	release  func()
	released bool
}

// NewDirEntry builds an entry. release, if non-nil, is called the first
// time the entry is released.
func NewDirEntry(name string, lstat, stat fs.FileInfo, release func()) *DirEntry {
	e := &DirEntry{
		Name:    name,
		Type:    EntryOther,
		Stat:    stat,
		Lstat:   lstat,
		release: release,
	}
	if lstat != nil {
		e.Type = TypeOf(lstat.Mode())
	} else if stat != nil {
		e.Type = TypeOf(stat.Mode())
	}
	return e
}

// IsDir reports whether the entry is a directory after following links.
func (e *DirEntry) IsDir() bool {
	return e.Stat != nil && e.Stat.IsDir()
}

// Release frees the entry. Calls after the first are no-ops.
func (e *DirEntry) Release() {
	if e.released {
		return
	}
	e.released = true
	if e.release != nil {
		e.release()
	}
}

// Released reports whether Release has been called.
func (e *DirEntry) Released() bool {
	return e.released
}

// EntriesFromInfos converts lstat-style listing results into entries. For
// symbolic links, follow is used to fill Stat; a failing follow leaves Stat
// nil. Other entries reuse the lstat info.
func EntriesFromInfos(infos []fs.FileInfo, follow func(name string) (fs.FileInfo, error)) []*DirEntry {
	entries := make([]*DirEntry, 0, len(infos))
	for _, info := range infos {
		stat := info
		if info.Mode()&fs.ModeSymlink != 0 {
			stat = nil
			if follow != nil {
				if fi, err := follow(info.Name()); err == nil {
					stat = fi
				}
			}
		}
		entries = append(entries, NewDirEntry(info.Name(), info, stat, nil))
	}
	return entries
}

// Batch owns the entries of one directory listing.
type Batch struct {
	entries []*DirEntry
}

// NewBatch takes ownership of entries, drops "." and ".." (releasing them)
// and sorts the rest by name.
func NewBatch(entries []*DirEntry) *Batch {
	kept := make([]*DirEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		if e.Name == "." || e.Name == ".." {
			e.Release()
			continue
		}
		kept = append(kept, e)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Name < kept[j].Name })
	return &Batch{entries: kept}
}

// Entries returns the entries in name order.
func (b *Batch) Entries() []*DirEntry {
	return b.entries
}

func (b *Batch) Len() int {
	return len(b.entries)
}

// Release releases every entry not released yet.
func (b *Batch) Release() {
	for _, e := range b.entries {
		e.Release()
	}
}
