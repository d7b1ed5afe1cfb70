package copier

import (
	"context"
	"fmt"
	"io/fs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// copyDir copies the directory src to dst recursively. A skip at the
// directory level skips src only; an abort or a fatal error from any entry
// ends the walk at once.
func (s *session) copyDir(ctx context.Context, src, dst string) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "copier.dir", trace.WithAttributes(
		attribute.String("fm.src", src),
		attribute.String("fm.dst", dst),
	))
	defer span.End()

	outcome, err := s.copyDirEntries(ctx, src, dst)
	switch outcome {
	case OutcomeSuccess:
		s.report.Dirs++
	case OutcomeSkipped:
		s.report.Skipped++
		s.log.WithField("dir", src).Info("Skipped")
	}
	span.SetAttributes(attribute.String("fm.outcome", outcome.String()))
	return outcome, err
}

func (s *session) copyDirEntries(ctx context.Context, src, dst string) (Outcome, error) {
	var info fs.FileInfo
	v := s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot stat source directory %q", src), src, func() (err error) {
		info, err = s.fs.Stat(src)
		return err
	})
	if v != proceed {
		return v.outcome(), nil
	}
	if s.inWalk(info) {
		return s.cycle(ctx, src), nil
	}
	s.walk = append(s.walk, info)
	defer func() { s.walk = s.walk[:len(s.walk)-1] }()

	v = s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot create target directory %q", dst), dst, func() error {
		return s.mkdir(dst, info.Mode().Perm())
	})
	if v != proceed {
		return v.outcome(), nil
	}

	v = s.attempt(ctx, retryIgnore, fmt.Sprintf("Cannot chmod target directory %q", dst), dst, func() error {
		return s.fs.Chmod(dst, info.Mode().Perm())
	})
	if v != proceed {
		return v.outcome(), nil
	}

	if s.cancelled(ctx) {
		return OutcomeAborted, nil
	}

	var batch *vfs.Batch
	v = s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot list source directory %q", src), src, func() (err error) {
		batch, err = s.fs.Scandir(src)
		return err
	})
	if v != proceed {
		return v.outcome(), nil
	}
	defer batch.Release()

	for _, e := range batch.Entries() {
		if s.cancelled(ctx) {
			return OutcomeAborted, nil
		}
		if s.excluded(e.Name) {
			s.report.Excluded++
			s.log.WithField("file", vfs.JoinURL(src, e.Name)).Debug("Excluded")
			e.Release()
			continue
		}

		from, to := vfs.JoinURL(src, e.Name), vfs.JoinURL(dst, e.Name)
		var (
			outcome Outcome
			err     error
		)
		if e.IsDir() {
			outcome, err = s.copyDir(ctx, from, to)
		} else {
			outcome, err = s.copyFile(ctx, from, to)
		}
		e.Release()

		if outcome.stops() {
			return outcome, err
		}
	}
	return OutcomeSuccess, nil
}

// mkdir creates dst. An existing directory is fine; any other existing node
// is NOT_DIR.
func (s *session) mkdir(dst string, perm fs.FileMode) error {
	err := s.fs.Mkdir(dst, perm)
	if errors.GetCode(err) != errors.CodeExist {
		return err
	}
	if isDir, statErr := s.fs.IsDir(dst); statErr == nil && isDir {
		return nil
	}
	return errors.WithContext(errors.New(errors.CodeNotDir, "target exists and is not a directory"), "path", dst)
}

// inWalk reports whether info is one of the directories being copied, which
// happens when a link points back up the tree.
func (s *session) inWalk(info fs.FileInfo) bool {
	for _, d := range s.walk {
		if vfs.SameFile(d, info) {
			return true
		}
	}
	return false
}

// cycle reports a directory reached again through a link. The operator may
// skip it or cancel.
func (s *session) cycle(ctx context.Context, src string) Outcome {
	err := errors.WithContext(errors.New(errors.CodePrecondition, "directory contains itself through a link"), "path", src)
	return s.attempt(ctx, skipOnly, fmt.Sprintf("Cannot copy directory %q into itself", src), src, func() error {
		return err
	}).outcome()
}

func (s *session) excluded(name string) bool {
	for _, g := range s.exclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}
