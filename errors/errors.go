package errors

// Error is the structured error returned across the VFS boundary.
//
// It carries a code (with a stable errno), a classification used to decide
// whether a retry is worth offering, a message, optional context such as the
// method and plugin names, and an optional cause. It works with errors.Is,
// errors.As and errors.Unwrap.
type Error interface {
	error

	// Code returns the error code identifying the type of error.
	Code() ErrorCode

	// Classification returns whether the error is retryable or permanent.
	Classification() ErrorClassification

	// Message returns the human-readable error message.
	Message() string

	// Context returns attached metadata as a read-only map.
	// Returns nil if no context has been attached.
	Context() map[string]interface{}

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}
