package copier

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/Nazg-Gul/fm/errors"
)

// Operator answers the questions the engine cannot decide alone. Every call
// blocks until the operator replies; the engine never runs two at once.
type Operator interface {
	// Error reports a failed step. The reply is one of prompt.Answers.
	Error(ctx context.Context, prompt ErrorPrompt) Answer

	// FileExists asks what to do with an existing destination file. The
	// reply is one of ConflictAnswers.
	FileExists(ctx context.Context, conflict Conflict) Answer

	// KeepIncomplete asks whether a partially written target is kept.
	KeepIncomplete(ctx context.Context, target string) bool

	// Alert shows a message that only needs acknowledging.
	Alert(ctx context.Context, message string)
}

// ErrorPrompt describes a failed step.
type ErrorPrompt struct {
	Message string // e.g. `Cannot open source file "/a/b"`
	Path    string
	Err     error
	Answers []Answer
}

func (p ErrorPrompt) String() string {
	if p.Err == nil {
		return p.Message
	}
	return fmt.Sprintf("%s:\n%s", p.Message, errors.Describe(p.Err))
}

// Offers reports whether a is one of the offered answers.
func (p ErrorPrompt) Offers(a Answer) bool {
	for _, o := range p.Answers {
		if o == a {
			return true
		}
	}
	return false
}

// FileMeta is what the operator sees of one side of a conflict.
type FileMeta struct {
	ModTime time.Time
	Size    int64
}

func metaOf(fi fs.FileInfo) FileMeta {
	if fi == nil {
		return FileMeta{}
	}
	return FileMeta{ModTime: fi.ModTime(), Size: fi.Size()}
}

// String renders the metadata as "date 2006-01-02 15:04, size N bytes".
func (m FileMeta) String() string {
	return fmt.Sprintf("date %s, size %d bytes", m.ModTime.Format("2006-01-02 15:04"), m.Size)
}

// Conflict describes a destination file that already exists.
type Conflict struct {
	Source     string
	Target     string
	SourceMeta FileMeta
	TargetMeta FileMeta
}

// Message is the headline shown to the operator.
func (c Conflict) Message() string {
	return fmt.Sprintf("Target file %q already exists!", c.Target)
}

// ConflictAnswers is the menu offered for every conflict.
var ConflictAnswers = []Answer{
	AnswerYes, AnswerNo, AnswerAppend,
	AnswerAll, AnswerUpdate, AnswerNone,
	AnswerSizeDiffers, AnswerAbort,
}

// Progress is the state of the file being copied.
type Progress struct {
	Source string
	Target string
	Copied int64
	Total  int64
}

// ProgressSink receives a Progress after every buffer written.
type ProgressSink interface {
	Progress(p Progress)
}

// Recorder is told about every finished file and every buffer written.
type Recorder interface {
	FileDone(o Outcome)
	Bytes(n int64)
}
