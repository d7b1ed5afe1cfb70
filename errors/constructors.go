package errors

import "fmt"

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) Error {
	return &vfsError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        message,
	}
}

// Newf creates an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) Error {
	return &vfsError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        fmt.Sprintf(format, args...),
	}
}

// MethodNotFound builds the uniform error for a primitive the backend does
// not implement. The method and plugin names travel in the context so the
// caller can present a precise diagnostic.
func MethodNotFound(method, plugin string) Error {
	return &vfsError{
		code:           CodeMethodNotFound,
		classification: ClassificationPermanent,
		message:        fmt.Sprintf("method %q is not implemented by plugin %q", method, plugin),
		context: map[string]interface{}{
			"method": method,
			"plugin": plugin,
		},
	}
}
