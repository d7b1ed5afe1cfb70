package errors

// WithContext returns a copy of err with one more context field.
// Plain errors are converted to CodeUnknown first. Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithContext(err, "path", "/tmp/a.txt")
func WithContext(err error, key string, value interface{}) Error {
	if err == nil {
		return nil
	}
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap returns a copy of err with the fields of ctx merged in.
// New fields override existing ones with the same key.
func WithContextMap(err error, ctx map[string]interface{}) Error {
	if err == nil {
		return nil
	}

	vErr := asError(err)
	merged := copyContext(vErr.Context())
	if merged == nil {
		merged = make(map[string]interface{}, len(ctx))
	}
	for k, v := range ctx {
		merged[k] = v
	}

	return &vfsError{
		code:           vErr.Code(),
		classification: vErr.Classification(),
		message:        vErr.Message(),
		context:        merged,
		cause:          vErr.Unwrap(),
	}
}

// WithClassification returns a copy of err with the classification replaced.
func WithClassification(err error, classification ErrorClassification) Error {
	if err == nil {
		return nil
	}

	vErr := asError(err)
	return &vfsError{
		code:           vErr.Code(),
		classification: classification,
		message:        vErr.Message(),
		context:        vErr.Context(),
		cause:          vErr.Unwrap(),
	}
}
