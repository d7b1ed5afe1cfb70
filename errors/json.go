package errors

import (
	"encoding/json"
)

// ErrorResponse is the flat JSON form of an error, used by the CLI's -json
// output. The cause chain is not included.
type ErrorResponse struct {
	Code           string                 `json:"code"`
	Errno          int                    `json:"errno"`
	Text           string                 `json:"text"`
	Message        string                 `json:"message"`
	Classification string                 `json:"classification"`
	Context        map[string]interface{} `json:"context,omitempty"`
}

// ToJSON converts any error to an ErrorResponse. Returns nil if err is nil.
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	code := GetCode(err)
	message := err.Error()
	var context map[string]interface{}

	var vErr Error
	if As(err, &vErr) {
		message = vErr.Message()
		context = vErr.Context()
	}

	return &ErrorResponse{
		Code:           string(code),
		Errno:          code.Errno(),
		Text:           code.Text(),
		Message:        message,
		Classification: string(GetClassification(err)),
		Context:        context,
	}
}

// MarshalJSON implements json.Marshaler.
func (e *vfsError) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(ToJSON(e))
	if err != nil {
		return nil, &vfsError{
			code:           CodeInternal,
			classification: ClassificationPermanent,
			message:        "failed to marshal error response",
			cause:          err,
		}
	}
	return data, nil
}
