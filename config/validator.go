package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/Nazg-Gul/fm/errors"
)

// Issue is one validation problem.
type Issue struct {
	// Path is the field path, e.g. "s3.0.bucket".
	Path string

	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// validate unifies data with schema and requires a concrete result with
// defaults resolved. Every problem is reported, not only the first.
func validate(schema, data cue.Value) error {
	if err := data.Err(); err != nil {
		return errors.WrapWithContext(err, errors.CodeInvalidArgument, "configuration is invalid",
			makeContext("issues", issues(err)))
	}

	unified := schema.Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final(), cue.All()); err != nil {
		found := issues(err)
		return errors.WrapWithContext(err, errors.CodeInvalidArgument, summarize(found),
			makeContext("issues", found, "details", cueerrors.Details(err, nil)))
	}
	return nil
}

func issues(err error) []Issue {
	var out []Issue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return out
}

func summarize(found []Issue) string {
	switch len(found) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + found[0].String()
	default:
		return fmt.Sprintf("validation failed: %s (and %d more)", found[0], len(found)-1)
	}
}

// makeContext builds an error context map from key/value pairs.
func makeContext(kvPairs ...interface{}) map[string]interface{} {
	ctx := make(map[string]interface{}, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		if key, ok := kvPairs[i].(string); ok {
			ctx[key] = kvPairs[i+1]
		}
	}
	return ctx
}
