package errors

import "fmt"

// Wrap wraps err with a code and message. The classification of a wrapped
// Error is preserved; otherwise the code's default applies.
//
// Returns nil if err is nil.
//
// Example:
//
//	f, err := backend.Open(name, os.O_RDONLY, 0)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeIO, "cannot open source file")
//	}
func Wrap(err error, code ErrorCode, message string) Error {
	return WrapWithContext(err, code, message, nil)
}

// Wrapf wraps err with a formatted message.
//
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) Error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps err and attaches a copy of ctx.
//
// Returns nil if err is nil.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) Error {
	if err == nil {
		return nil
	}

	classification := getDefaultClassification(code)
	var vErr Error
	if As(err, &vErr) {
		classification = vErr.Classification()
	}

	return &vfsError{
		code:           code,
		classification: classification,
		message:        message,
		context:        copyContext(ctx),
		cause:          err,
	}
}
