package errors

import (
	"context"
	"io"
	"io/fs"
	"syscall"
)

// Translate converts a raw backend error into an Error. Errors that already
// carry a code are returned unchanged; nil stays nil.
//
// The io/fs sentinels map to the I/O band, ENOTDIR maps to CodeNotDir,
// EXDEV to CodeCrossDevice, fs.ErrInvalid to CodeInvalidArgument and
// context cancellation to CodeAborted. Anything else becomes CodeIO.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var vErr Error
	if As(err, &vErr) {
		return vErr
	}

	return Wrap(err, translateCode(err), err.Error())
}

// TranslateOp is Translate with the operation and path recorded in the
// error context.
func TranslateOp(err error, op, path string) error {
	if err == nil {
		return nil
	}
	return WithContextMap(Translate(err), map[string]interface{}{
		"op":   op,
		"path": path,
	})
}

func translateCode(err error) ErrorCode {
	switch {
	case Is(err, fs.ErrNotExist):
		return CodeNotExist
	case Is(err, fs.ErrExist):
		return CodeExist
	case Is(err, fs.ErrPermission):
		return CodePermission
	case Is(err, syscall.ENOTDIR):
		return CodeNotDir
	case Is(err, syscall.EXDEV):
		return CodeCrossDevice
	case Is(err, fs.ErrInvalid):
		return CodeInvalidArgument
	case Is(err, context.Canceled), Is(err, context.DeadlineExceeded):
		return CodeAborted
	case Is(err, io.ErrUnexpectedEOF):
		return CodeIO
	}
	return CodeIO
}
