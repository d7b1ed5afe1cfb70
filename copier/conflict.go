package copier

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/sirupsen/logrus"

	"github.com/Nazg-Gul/fm/errors"
)

// resolveConflict decides what happens to the existing file dst. The result
// is one of RuleOverwrite, RuleAppend, RuleSkip and RuleAbort.
//
// A sticky rule answers without asking. Otherwise the operator is asked;
// "all", "none", "update" and "size differs" become the sticky rule, and the
// conditional ones are applied to dst right away.
func (s *session) resolveConflict(ctx context.Context, src, dst string) Rule {
	switch s.rule {
	case RuleOverwriteAll:
		return RuleOverwrite
	case RuleSkipAll:
		return RuleSkip
	case RuleOverwriteIfNewer, RuleOverwriteIfSizeDiffers:
		return s.evaluate(ctx, s.rule, src, dst)
	}

	conflict := Conflict{Source: src, Target: dst}
	if fi, err := s.fs.Stat(src); err == nil {
		conflict.SourceMeta = metaOf(fi)
	}
	if fi, err := s.fs.Stat(dst); err == nil {
		conflict.TargetMeta = metaOf(fi)
	}

	a := s.op.FileExists(ctx, conflict)
	s.log.WithFields(logrus.Fields{"file": dst, "answer": a.String()}).Debug("Conflict answered")

	switch a {
	case AnswerYes:
		return RuleOverwrite
	case AnswerNo:
		return RuleSkip
	case AnswerAppend:
		return RuleAppend
	case AnswerAll:
		s.rule = RuleOverwriteAll
		return RuleOverwrite
	case AnswerNone:
		s.rule = RuleSkipAll
		return RuleSkip
	case AnswerUpdate:
		s.rule = RuleOverwriteIfNewer
		return s.evaluate(ctx, s.rule, src, dst)
	case AnswerSizeDiffers:
		s.rule = RuleOverwriteIfSizeDiffers
		return s.evaluate(ctx, s.rule, src, dst)
	default:
		return RuleAbort
	}
}

// evaluate applies a conditional rule to one pair of files. A destination
// that vanished is overwritten; other stat failures go to the operator.
func (s *session) evaluate(ctx context.Context, rule Rule, src, dst string) Rule {
	var srcInfo, dstInfo fs.FileInfo

	v := s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot stat target file %q", dst), dst, func() (err error) {
		dstInfo, err = s.fs.Stat(dst)
		if errors.GetCode(err) == errors.CodeNotExist {
			dstInfo, err = nil, nil
		}
		return err
	})
	if v != proceed {
		return ruleOf(v)
	}
	if dstInfo == nil {
		return RuleOverwrite
	}

	v = s.attempt(ctx, retrySkip, fmt.Sprintf("Cannot stat source file %q", src), src, func() (err error) {
		srcInfo, err = s.fs.Stat(src)
		return err
	})
	if v != proceed {
		return ruleOf(v)
	}

	var overwrite bool
	switch rule {
	case RuleOverwriteIfNewer:
		overwrite = isNewer(srcInfo, dstInfo)
	case RuleOverwriteIfSizeDiffers:
		overwrite = srcInfo.Size() != dstInfo.Size()
	}
	if overwrite {
		return RuleOverwrite
	}
	return RuleSkip
}

// isNewer reports whether a was modified strictly after b.
func isNewer(a, b fs.FileInfo) bool {
	at, bt := a.ModTime(), b.ModTime()
	if at.Unix() != bt.Unix() {
		return at.Unix() > bt.Unix()
	}
	return at.Nanosecond() > bt.Nanosecond()
}

func ruleOf(v verdict) Rule {
	if v == skip {
		return RuleSkip
	}
	return RuleAbort
}
