// Package errs translates object store errors into io/fs errors.
package errs

import (
	"fmt"
	"io/fs"

	"github.com/minio/minio-go/v7"
)

// Translate converts MinIO error responses to fs sentinel errors. Other
// errors are wrapped unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fs.ErrNotExist
	case "AccessDenied":
		return fs.ErrPermission
	case "InvalidObjectName", "KeyTooLongError":
		return fs.ErrInvalid
	}

	return fmt.Errorf("minio: %w", err)
}

// PathError wraps err in a fs.PathError. A nil err returns nil.
func PathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}

// PathErrorf creates a fs.PathError with a formatted error.
func PathErrorf(op, path, format string, args ...interface{}) error {
	return &fs.PathError{Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}
