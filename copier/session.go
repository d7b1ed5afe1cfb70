package copier

import (
	"context"
	"io/fs"

	"github.com/sirupsen/logrus"
)

// session is the state of one Copy or Move invocation. It is passed by
// pointer through every recursive frame.
type session struct {
	*Copier

	id      string
	rule    Rule            // sticky overwrite rule, RuleAsk until the operator picks one
	ignored map[string]bool // missing optional primitives the operator ignored
	walk    []fs.FileInfo   // source directories being copied, outermost first
	log     *logrus.Entry
	report  *Report
}

// cancelled is a cancellation checkpoint.
func (s *session) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		s.log.WithError(ctx.Err()).Info("Cancelled")
		return true
	}
	return false
}

func (s *session) fileDone(src string, o Outcome) {
	switch o {
	case OutcomeSuccess:
		s.report.Files++
	case OutcomeSkipped:
		s.report.Skipped++
		s.log.WithField("file", src).Info("Skipped")
	case OutcomeAborted:
		s.log.WithField("file", src).Info("Aborted")
	}
	if s.recorder != nil {
		s.recorder.FileDone(o)
	}
}

func (s *session) wrote(p *Progress, n int) {
	p.Copied += int64(n)
	s.report.Bytes += int64(n)
	if s.recorder != nil {
		s.recorder.Bytes(int64(n))
	}
	if s.progress != nil {
		s.progress.Progress(*p)
	}
}
