package errors

import (
	stderrors "errors"
)

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the code of the outermost Error in the chain.
// Returns CodeUnknown for nil or plain errors.
//
// Example:
//
//	if errors.GetCode(err) == errors.CodeMethodNotFound {
//	    // offer skip/cancel only
//	}
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var vErr Error
	if stderrors.As(err, &vErr) {
		return vErr.Code()
	}

	return CodeUnknown
}

// GetErrno returns the stable integer for err: 0 for nil, the code's errno
// otherwise.
func GetErrno(err error) int {
	if err == nil {
		return 0
	}
	return GetCode(err).Errno()
}

// GetClassification extracts the classification of the outermost Error.
// Returns ClassificationPermanent for nil or plain errors.
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}

	var vErr Error
	if stderrors.As(err, &vErr) {
		return vErr.Classification()
	}

	return ClassificationPermanent
}

// IsRetryable reports whether offering a retry for err makes sense.
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}

// Describe renders err for an operator: the code's text followed by the
// message, e.g. "Method not found: method "chmod" is not implemented by plugin "s3"".
func Describe(err error) string {
	if err == nil {
		return CodeOK.Text()
	}
	var vErr Error
	if !stderrors.As(err, &vErr) {
		return err.Error()
	}
	msg := vErr.Code().Text() + ": " + vErr.Message()
	if cause := vErr.Unwrap(); cause != nil {
		msg += " (" + cause.Error() + ")"
	}
	return msg
}
