package errors

// ErrorClassification tells the operator-facing layers whether offering a
// retry makes sense. It never causes an automatic retry.
type ErrorClassification string

const (
	// ClassificationRetryable marks failures that may succeed when repeated.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent marks failures that repeating cannot fix.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be offered.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeIO:         ClassificationRetryable,
	CodeNotExist:   ClassificationRetryable, // media may be remounted
	CodePermission: ClassificationRetryable, // operator may fix permissions
	CodeExist:      ClassificationRetryable,
	CodeNotDir:     ClassificationRetryable,
	CodeCommon:     ClassificationRetryable,
	CodeUnknown:    ClassificationRetryable,

	CodeMethodNotFound:  ClassificationPermanent,
	CodeInvalidArgument: ClassificationPermanent,
	CodePrecondition:    ClassificationPermanent,
	CodeInternal:        ClassificationPermanent,
	CodeAborted:         ClassificationPermanent,
	CodeCrossDevice:     ClassificationPermanent,
	CodePluginFormat:    ClassificationPermanent,
	CodePluginLoad:      ClassificationPermanent,
	CodePluginInit:      ClassificationPermanent,
	CodePluginNotFound:  ClassificationPermanent,
	CodeInvalidURL:      ClassificationPermanent,
	CodePluginExists:    ClassificationPermanent,
	CodePluginBusy:      ClassificationRetryable,
}

func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
