package copier

import (
	"context"

	"github.com/Nazg-Gul/fm/errors"
)

// prompt selects the answers offered when a step fails.
type prompt int

const (
	retrySkip   prompt = iota // Retry, Skip, Cancel
	retryIgnore               // Retry, Ignore, Cancel: the step is optional
	skipOnly                  // Skip, Cancel: the step cannot be repeated
)

// answers returns the menu for err. Retrying a primitive the backend does
// not implement cannot succeed, so it is not offered.
func (k prompt) answers(err error) []Answer {
	second := AnswerSkip
	if k == retryIgnore {
		second = AnswerIgnore
	}
	if k == skipOnly || errors.GetCode(err) == errors.CodeMethodNotFound {
		return []Answer{second, AnswerCancel}
	}
	return []Answer{AnswerRetry, second, AnswerCancel}
}

// verdict is how a step ended.
type verdict int

const (
	proceed verdict = iota // succeeded, or failed and was ignored
	skip
	abort
)

func (v verdict) outcome() Outcome {
	switch v {
	case skip:
		return OutcomeSkipped
	case abort:
		return OutcomeAborted
	default:
		return OutcomeSuccess
	}
}

// attempt runs fn until it succeeds or the operator stops retrying. Cancel,
// abort and any answer that was not offered end the invocation.
//
// Once the operator ignores an optional primitive a backend does not
// implement, later failures of that primitive on that backend are ignored
// without asking.
func (s *session) attempt(ctx context.Context, k prompt, message, path string, fn func() error) verdict {
	for {
		err := fn()
		if err == nil {
			return proceed
		}

		missing := missingMethod(err)
		if k == retryIgnore && missing != "" && s.ignored[missing] {
			return proceed
		}

		p := ErrorPrompt{Message: message, Path: path, Err: err, Answers: k.answers(err)}
		s.log.WithError(err).WithField("path", path).Debug(message)

		a := s.op.Error(ctx, p)
		switch {
		case a == AnswerRetry && p.Offers(a):
			continue
		case a == AnswerIgnore && p.Offers(a):
			if missing != "" {
				s.ignored[missing] = true
			}
			s.log.WithError(err).WithField("path", path).Warn("Ignored: " + message)
			return proceed
		case a == AnswerSkip && p.Offers(a):
			return skip
		default:
			return abort
		}
	}
}

// missingMethod returns "method@plugin" for a METHOD_NOT_FOUND error and ""
// for anything else.
func missingMethod(err error) string {
	if errors.GetCode(err) != errors.CodeMethodNotFound {
		return ""
	}
	var e errors.Error
	if !errors.As(err, &e) {
		return ""
	}
	method, _ := e.Context()["method"].(string)
	plugin, _ := e.Context()["plugin"].(string)
	return method + "@" + plugin
}
