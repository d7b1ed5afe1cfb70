package copier

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// Move moves src to dst, resolving dst the same way Copy does.
//
// When both URLs live on one backend whose move strategy is rename, the
// move is a single rename. Otherwise src is copied and removed afterwards,
// but only if everything was copied: a skipped or excluded entry keeps the
// whole source in place.
func (c *Copier) Move(ctx context.Context, src, dst string) (*Report, error) {
	ctx, span := c.tracer.Start(ctx, "copier.Move", trace.WithAttributes(
		attribute.String("fm.src", src),
		attribute.String("fm.dst", dst),
	))
	defer span.End()

	s := c.newSession(src, dst)
	s.log.Info("Move started")

	outcome, err := s.moveTop(ctx, src, dst)
	return s.finish(span, outcome, err)
}

func (s *session) moveTop(ctx context.Context, src, dst string) (Outcome, error) {
	target, srcIsDir, err := s.resolveTarget(ctx, src, dst)
	if err != nil {
		return OutcomeFatal, err
	}

	preset := RuleAsk
	if s.fs.MoveStrategy(src, target) == vfs.MoveRename {
		var (
			outcome Outcome
			done    bool
		)
		outcome, done, preset, err = s.rename(ctx, src, target, srcIsDir)
		if done {
			return outcome, err
		}
	}

	var outcome Outcome
	if srcIsDir {
		outcome, err = s.copyDir(ctx, src, target)
	} else {
		outcome, err = s.copyFileAs(ctx, src, target, preset)
	}
	if outcome != OutcomeSuccess {
		return outcome, err
	}
	if s.report.Skipped > 0 || s.report.Excluded > 0 {
		s.log.WithFields(logrus.Fields{
			"skipped":  s.report.Skipped,
			"excluded": s.report.Excluded,
		}).Info("Source kept, not everything was copied")
		return outcome, nil
	}
	return s.remove(ctx, src), nil
}

// rename moves src to dst in one step. done is false when the move has to
// fall back to copying, in which case rule is the conflict decision already
// made for a file target. A rename across devices falls back to copying.
func (s *session) rename(ctx context.Context, src, dst string, srcIsDir bool) (outcome Outcome, done bool, rule Rule, err error) {
	if !srcIsDir && (src == dst || s.fs.SamePath(src, dst)) {
		err := errors.WithContext(errors.New(errors.CodePrecondition, "source and destination are the same file"), "path", src)
		return OutcomeFatal, true, RuleAsk, s.fatal(ctx, fmt.Sprintf("Cannot move %q to itself", src), err)
	}

	rule = RuleAsk
	if _, statErr := s.fs.Stat(dst); statErr == nil {
		if srcIsDir {
			// Merge into the existing directory.
			return OutcomeSuccess, false, RuleAsk, nil
		}
		switch rule = s.resolveConflict(ctx, src, dst); rule {
		case RuleSkip:
			s.fileDone(src, OutcomeSkipped)
			return OutcomeSkipped, true, rule, nil
		case RuleAbort:
			s.fileDone(src, OutcomeAborted)
			return OutcomeAborted, true, rule, nil
		case RuleAppend:
			return OutcomeSuccess, false, rule, nil
		}
	}

	crossDevice := false
	v := s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot move %q to %q", src, dst), src, func() error {
		err := s.fs.Rename(src, dst)
		if errors.GetCode(err) == errors.CodeCrossDevice {
			crossDevice = true
			return nil
		}
		return err
	})
	if crossDevice {
		s.log.WithFields(logrus.Fields{"src": src, "dst": dst}).Debug("Rename crosses devices, copying")
		return OutcomeSuccess, false, rule, nil
	}
	outcome = v.outcome()
	if !srcIsDir {
		s.fileDone(src, outcome)
	} else if outcome == OutcomeSuccess {
		s.report.Dirs++
	} else if outcome == OutcomeSkipped {
		s.report.Skipped++
	}
	return outcome, true, RuleAsk, nil
}

// remove deletes url and, for a directory, everything below it. Links are
// removed, never followed.
func (s *session) remove(ctx context.Context, url string) Outcome {
	var info fs.FileInfo
	v := s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot stat %q", url), url, func() (err error) {
		info, err = s.lstat(url)
		return err
	})
	if v != proceed {
		return v.outcome()
	}

	if !info.IsDir() {
		return s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot delete file %q", url), url, func() error {
			return s.fs.Unlink(url)
		}).outcome()
	}

	var batch *vfs.Batch
	v = s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot list directory %q", url), url, func() (err error) {
		batch, err = s.fs.Scandir(url)
		return err
	})
	if v != proceed {
		return v.outcome()
	}
	defer batch.Release()

	kept := false
	for _, e := range batch.Entries() {
		if s.cancelled(ctx) {
			return OutcomeAborted
		}
		child := vfs.JoinURL(url, e.Name)
		var outcome Outcome
		if e.Type == vfs.EntryDir {
			outcome = s.remove(ctx, child)
		} else {
			outcome = s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot delete file %q", child), child, func() error {
				return s.fs.Unlink(child)
			}).outcome()
		}
		e.Release()
		if outcome.stops() {
			return outcome
		}
		kept = kept || outcome == OutcomeSkipped
	}
	if kept {
		return OutcomeSkipped
	}

	return s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot delete directory %q", url), url, func() error {
		return s.fs.Rmdir(url)
	}).outcome()
}

// lstat describes url without following links, falling back to stat on
// backends without links.
func (s *session) lstat(url string) (fs.FileInfo, error) {
	fi, err := s.fs.Lstat(url)
	if errors.GetCode(err) == errors.CodeMethodNotFound {
		return s.fs.Stat(url)
	}
	return fi, err
}
