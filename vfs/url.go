package vfs

import (
	"path"
	"strings"
)

// Delimiter separates the backend qualifier from the path in a URL.
const Delimiter = "::"

// SplitURL splits url into its qualifier and path. ok is false when url has
// no qualifier, in which case path is url itself.
func SplitURL(url string) (qualifier, p string, ok bool) {
	i := strings.Index(url, Delimiter)
	if i < 0 {
		return "", url, false
	}
	return url[:i], url[i+len(Delimiter):], true
}

// MakeURL builds "qualifier::path", or returns p when qualifier is empty.
func MakeURL(qualifier, p string) string {
	if qualifier == "" {
		return p
	}
	return qualifier + Delimiter + p
}

// JoinURL appends name to the path part of url.
func JoinURL(url, name string) string {
	q, p, ok := SplitURL(url)
	if p == "" {
		p = name
	} else {
		p = path.Join(p, name)
	}
	if !ok {
		return p
	}
	return MakeURL(q, p)
}

// BaseURL returns the last element of the path part of url.
func BaseURL(url string) string {
	_, p, _ := SplitURL(url)
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// DirURL returns url with the last path element removed.
func DirURL(url string) string {
	q, p, ok := SplitURL(url)
	d := path.Dir(p)
	if !ok {
		return d
	}
	return MakeURL(q, d)
}

// CleanURL cleans the path part of url. An empty path stays empty.
func CleanURL(url string) string {
	q, p, ok := SplitURL(url)
	if p != "" {
		p = path.Clean(p)
	}
	if !ok {
		return p
	}
	return MakeURL(q, p)
}

// WithinURL reports whether child is parent or lies below it. Both URLs
// must use the same qualifier.
func WithinURL(parent, child string) bool {
	pq, pp, _ := SplitURL(CleanURL(parent))
	cq, cp, _ := SplitURL(CleanURL(child))
	if pq != cq {
		return false
	}
	if pp == cp {
		return true
	}
	if !strings.HasSuffix(pp, "/") {
		pp += "/"
	}
	return strings.HasPrefix(cp, pp)
}
