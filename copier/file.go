package copier

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// copyFile copies the file src to dst and counts the result.
func (s *session) copyFile(ctx context.Context, src, dst string) (Outcome, error) {
	return s.copyFileAs(ctx, src, dst, RuleAsk)
}

// copyFileAs is copyFile with the conflict for an existing dst already
// decided as rule, unless rule is RuleAsk.
func (s *session) copyFileAs(ctx context.Context, src, dst string, rule Rule) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "copier.file", trace.WithAttributes(
		attribute.String("fm.src", src),
		attribute.String("fm.dst", dst),
	))
	defer span.End()

	outcome, err := s.copyFileData(ctx, src, dst, rule)
	s.fileDone(src, outcome)
	span.SetAttributes(attribute.String("fm.outcome", outcome.String()))
	return outcome, err
}

func (s *session) copyFileData(ctx context.Context, src, dst string, rule Rule) (Outcome, error) {
	if src == dst || s.fs.SamePath(src, dst) {
		err := errors.WithContext(errors.New(errors.CodePrecondition, "source and destination are the same file"), "path", src)
		return OutcomeFatal, s.fatal(ctx, fmt.Sprintf("Cannot copy %q to itself", src), err)
	}

	if s.cancelled(ctx) {
		return OutcomeAborted, nil
	}

	var in vfs.Handle
	v := s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot open source file %q", src), src, func() (err error) {
		in, err = s.fs.Open(src, os.O_RDONLY, 0)
		return err
	})
	if v != proceed {
		return v.outcome(), nil
	}
	defer s.closeQuietly(in)

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if _, err := s.fs.Stat(dst); err == nil {
		if rule == RuleAsk {
			rule = s.resolveConflict(ctx, src, dst)
		}
		switch rule {
		case RuleSkip:
			return OutcomeSkipped, nil
		case RuleAbort:
			return OutcomeAborted, nil
		case RuleAppend:
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
	}

	var info fs.FileInfo
	v = s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot stat source file %q", src), src, func() (err error) {
		info, err = s.fs.Stat(src)
		return err
	})
	if v != proceed {
		return v.outcome(), nil
	}

	var out vfs.Handle
	v = s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot create target file %q", dst), dst, func() (err error) {
		out, err = s.fs.Open(dst, flag, info.Mode().Perm())
		return err
	})
	if v != proceed {
		return v.outcome(), nil
	}

	outcome := s.attempt(ctx, retryIgnore, fmt.Sprintf("Cannot chmod target file %q", dst), dst, func() error {
		return s.fs.Chmod(dst, info.Mode().Perm())
	}).outcome()
	if outcome == OutcomeSuccess {
		p := &Progress{Source: src, Target: dst, Total: info.Size()}
		if s.progress != nil {
			s.progress.Progress(*p)
		}
		outcome = s.transfer(ctx, in, out, p)
	}

	closeErr := out.Close()
	if outcome == OutcomeSuccess && closeErr != nil {
		outcome = s.attempt(ctx, skipOnly, fmt.Sprintf("Cannot write target file %q", dst), dst, func() error {
			return closeErr
		}).outcome()
	}
	if outcome != OutcomeSuccess {
		s.incomplete(ctx, dst)
		return outcome, nil
	}

	s.setTimes(dst, info)
	return OutcomeSuccess, nil
}

// transfer copies p.Total bytes from in to out, one buffer at a time.
func (s *session) transfer(ctx context.Context, in, out vfs.Handle, p *Progress) Outcome {
	buf := make([]byte, s.bufSize)

	for p.Copied < p.Total {
		if s.cancelled(ctx) {
			return OutcomeAborted
		}

		want := int64(len(buf))
		if remain := p.Total - p.Copied; remain < want {
			want = remain
		}

		var n int
		v := s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot read source file %q", p.Source), p.Source, func() error {
			var err error
			n, err = in.Read(buf[:want])
			switch {
			case n > 0:
				return nil
			case err == io.EOF:
				return errors.WrapWithContext(io.ErrUnexpectedEOF, errors.CodeIO, "source file is shorter than its size",
					map[string]interface{}{"path": p.Source, "size": p.Total, "read": p.Copied})
			case err == nil:
				return errors.Wrap(io.ErrNoProgress, errors.CodeIO, "read returned no data")
			}
			return err
		})
		if v != proceed {
			return v.outcome()
		}

		written := 0
		for written < n {
			v := s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot write target file %q", p.Target), p.Target, func() error {
				w, err := out.Write(buf[written:n])
				written += w
				return err
			})
			if v != proceed {
				return v.outcome()
			}
		}

		s.wrote(p, n)
	}
	return OutcomeSuccess
}

// incomplete asks whether the partial file dst is kept and removes it if not.
// The question is asked even when ctx is already cancelled.
func (s *session) incomplete(ctx context.Context, dst string) {
	if s.op.KeepIncomplete(context.WithoutCancel(ctx), dst) {
		s.log.WithField("file", dst).Info("Kept incomplete file")
		return
	}
	if err := s.fs.Unlink(dst); err != nil {
		s.log.WithError(err).WithField("file", dst).Warn("Cannot remove incomplete file")
	}
}

// setTimes copies the access and modification times of info to dst.
// Failures are logged only.
func (s *session) setTimes(dst string, info fs.FileInfo) {
	err := s.fs.Utimes(dst, vfs.AccessTime(info), info.ModTime())
	switch {
	case err == nil:
	case errors.GetCode(err) == errors.CodeMethodNotFound:
		s.log.WithError(err).WithField("file", dst).Debug("Times not preserved")
	default:
		s.log.WithError(err).WithField("file", dst).Warn("Cannot set file times")
	}
}

func (s *session) closeQuietly(f vfs.File) {
	if err := f.Close(); err != nil {
		s.log.WithError(err).WithField("file", f.Name()).Debug("Close failed")
	}
}
