// Package copier copies and moves files and directory trees between VFS
// URLs.
//
// Every decision the engine cannot make alone goes to an Operator: whether
// to retry a failed step, what to do with an existing destination, whether
// to keep a partially written file. Answers such as "overwrite all" stick
// for the rest of the invocation, including every subdirectory.
//
// A Copier runs one invocation at a time on the calling goroutine.
// Cancelling the context aborts the invocation at the next checkpoint:
// before a source file is opened, before every read and before every
// directory entry.
//
//	c := copier.New(reg, termui.New(os.Stdin, os.Stdout))
//	report, err := c.Copy(ctx, "/home/me/docs", "s3::/backup")
package copier

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// DefaultBufferSize is the size of the transfer buffer.
const DefaultBufferSize = 4096

const tracerName = "github.com/Nazg-Gul/fm/copier"

// FS is the set of URL-level primitives the engine uses. It is implemented
// by *registry.Registry.
type FS interface {
	Open(url string, flag int, perm fs.FileMode) (vfs.Handle, error)
	Stat(url string) (fs.FileInfo, error)
	Lstat(url string) (fs.FileInfo, error)
	IsDir(url string) (bool, error)
	Mkdir(url string, perm fs.FileMode) error
	Chmod(url string, mode fs.FileMode) error
	Unlink(url string) error
	Rmdir(url string) error
	Rename(src, dst string) error
	Scandir(url string) (*vfs.Batch, error)
	Utimes(url string, atime, mtime time.Time) error
	MoveStrategy(src, dst string) vfs.Strategy
	SamePath(a, b string) bool
	Contains(parent, child string) bool
}

// Copier copies files between URLs of an FS.
type Copier struct {
	fs       FS
	op       Operator
	bufSize  int
	progress ProgressSink
	recorder Recorder
	log      *logrus.Entry
	exclude  []glob.Glob
	tracer   trace.Tracer
}

// Option configures a Copier.
type Option func(*Copier)

// WithBufferSize sets the transfer buffer size. Values below one are
// ignored.
func WithBufferSize(n int) Option {
	return func(c *Copier) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// WithProgress sets the sink receiving progress updates.
func WithProgress(p ProgressSink) Option {
	return func(c *Copier) {
		c.progress = p
	}
}

// WithRecorder sets the metrics hook.
func WithRecorder(r Recorder) Option {
	return func(c *Copier) {
		c.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Copier) {
		c.log = l
	}
}

// WithExclude skips directory entries whose name matches any of globs.
// See CompileExclude.
func WithExclude(globs ...glob.Glob) Option {
	return func(c *Copier) {
		c.exclude = append(c.exclude, globs...)
	}
}

// WithTracer sets the tracer. The default comes from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Copier) {
		c.tracer = t
	}
}

// CompileExclude compiles name patterns for WithExclude. Patterns use the
// usual *, ?, [abc] and {a,b} syntax.
func CompileExclude(patterns ...string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeInvalidArgument,
				"invalid exclude pattern", map[string]interface{}{"pattern": p})
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// New creates a Copier working on fsys and asking op.
func New(fsys FS, op Operator, opts ...Option) *Copier {
	c := &Copier{
		fs:      fsys,
		op:      op,
		bufSize: DefaultBufferSize,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	c.log = c.log.WithField("component", "copier")
	return c
}

// Report summarizes an invocation.
type Report struct {
	Outcome  Outcome
	Files    int   // files copied completely
	Skipped  int   // files and directories skipped by the operator
	Excluded int   // entries matched by an exclude pattern
	Dirs     int   // directories copied
	Bytes    int64 // bytes written
	Session  string
}

// newSession starts an invocation.
func (c *Copier) newSession(src, dst string) *session {
	id := uuid.New().String()
	return &session{
		Copier: c,
		id:     id,
		log: c.log.WithFields(logrus.Fields{
			"session": id,
			"src":     src,
			"dst":     dst,
		}),
		report:  &Report{Session: id},
		ignored: make(map[string]bool),
	}
}

// Copy copies src to dst. A directory is copied recursively.
//
// When dst is an existing directory the source is copied into it under its
// own name. Copying a directory onto an existing non-directory, or into its
// own subtree, and copying a file onto itself are fatal. The returned error
// is non-nil only for a fatal outcome; an abort is reported through
// Report.Outcome.
func (c *Copier) Copy(ctx context.Context, src, dst string) (*Report, error) {
	ctx, span := c.tracer.Start(ctx, "copier.Copy", trace.WithAttributes(
		attribute.String("fm.src", src),
		attribute.String("fm.dst", dst),
	))
	defer span.End()

	s := c.newSession(src, dst)
	s.log.Info("Copy started")

	outcome, err := s.copyTop(ctx, src, dst)
	return s.finish(span, outcome, err)
}

func (s *session) copyTop(ctx context.Context, src, dst string) (Outcome, error) {
	target, srcIsDir, err := s.resolveTarget(ctx, src, dst)
	if err != nil {
		return OutcomeFatal, err
	}
	if srcIsDir {
		return s.copyDir(ctx, src, target)
	}
	return s.copyFile(ctx, src, target)
}

// resolveTarget finds where src lands when copied or moved to dst.
func (s *session) resolveTarget(ctx context.Context, src, dst string) (string, bool, error) {
	srcInfo, err := s.fs.Stat(src)
	if err != nil {
		return "", false, s.fatal(ctx, fmt.Sprintf("Cannot stat source %q", src), err)
	}

	dstInfo, err := s.fs.Stat(dst)
	dstExists := err == nil

	if !srcInfo.IsDir() {
		if dstExists && dstInfo.IsDir() {
			return vfs.JoinURL(dst, vfs.BaseURL(src)), false, nil
		}
		return dst, false, nil
	}

	target := dst
	if dstExists {
		if !dstInfo.IsDir() {
			return "", true, s.fatal(ctx, fmt.Sprintf("Cannot copy directory %q onto non-directory %q", src, dst),
				errors.WithContext(errors.New(errors.CodeNotDir, "destination is not a directory"), "path", dst))
		}
		target = vfs.JoinURL(dst, vfs.BaseURL(src))
	}
	if s.fs.Contains(src, target) {
		return "", true, s.fatal(ctx, fmt.Sprintf("Cannot copy %q into itself", src),
			errors.WithContext(errors.New(errors.CodePrecondition, "destination is inside the source"), "path", target))
	}
	return target, true, nil
}

// fatal shows message and returns err.
func (s *session) fatal(ctx context.Context, message string, err error) error {
	s.log.WithError(err).Error(message)
	s.op.Alert(ctx, message)
	return err
}

func (s *session) finish(span trace.Span, outcome Outcome, err error) (*Report, error) {
	s.report.Outcome = outcome

	span.SetAttributes(
		attribute.String("fm.outcome", outcome.String()),
		attribute.Int("fm.files", s.report.Files),
		attribute.Int64("fm.bytes", s.report.Bytes),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.Describe(err))
	}

	entry := s.log.WithFields(logrus.Fields{
		"outcome": outcome.String(),
		"files":   s.report.Files,
		"skipped": s.report.Skipped,
		"bytes":   s.report.Bytes,
	})
	switch outcome {
	case OutcomeFatal:
		entry.WithError(err).Error("Finished with fatal error")
	case OutcomeAborted:
		entry.Info("Aborted")
	default:
		entry.Info("Finished")
	}
	return s.report, err
}
