// Package pathutil maps VFS paths to object keys.
package pathutil

import (
	"path"
	"strings"
)

// Normalize cleans a VFS path into a key fragment: backslashes become
// slashes, "." and ".." are resolved and surrounding slashes are trimmed.
// Returns "." for the root.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.Trim(path.Clean("/"+name), "/")
	if name == "" {
		return "."
	}
	return name
}

// NormalizePrefix normalizes a key prefix. Returns "" when there is none.
func NormalizePrefix(prefix string) string {
	if prefix = Normalize(prefix); prefix == "." {
		return ""
	}
	return prefix
}

// JoinPath joins a normalized prefix with a VFS path. The root maps to the
// prefix itself.
func JoinPath(prefix, name string) string {
	name = Normalize(name)

	if name == "." {
		return prefix
	}
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// DirPrefix returns the listing prefix for a directory key. The bucket
// root lists with an empty prefix.
func DirPrefix(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}
