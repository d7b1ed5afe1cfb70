package termui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Nazg-Gul/fm/copier"
	"github.com/Nazg-Gul/fm/errors"
)

func newUI(input string) (*UI, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(strings.NewReader(input), out), out
}

func TestError(t *testing.T) {
	p := copier.ErrorPrompt{
		Message: `Cannot open source file "/a"`,
		Path:    "/a",
		Err:     errors.New(errors.CodePermission, "denied"),
		Answers: []copier.Answer{copier.AnswerRetry, copier.AnswerSkip, copier.AnswerCancel},
	}

	tests := []struct {
		name  string
		input string
		want  copier.Answer
	}{
		{"retry", "r\n", copier.AnswerRetry},
		{"skip upper case", " S \n", copier.AnswerSkip},
		{"cancel", "c\n", copier.AnswerCancel},
		{"asks again after junk", "x\n\ns\n", copier.AnswerSkip},
		{"not offered", "i\nr\n", copier.AnswerRetry},
		{"end of input", "", copier.AnswerCancel},
		{"last line without newline", "s", copier.AnswerSkip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui, out := newUI(tt.input)
			assert.Equal(t, tt.want, ui.Error(context.Background(), p))
			assert.Contains(t, out.String(), `Error: Cannot open source file "/a"`)
			assert.Contains(t, out.String(), "[r]etry [s]kip [c]ancel? ")
			assert.NotContains(t, out.String(), "[i]gnore")
		})
	}
}

func TestError_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ui, _ := newUI("r\n")
	assert.Equal(t, copier.AnswerCancel, ui.Error(ctx, copier.ErrorPrompt{Answers: []copier.Answer{copier.AnswerRetry}}))
}

func TestFileExists(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	c := copier.Conflict{
		Source:     "/a",
		Target:     "/b",
		SourceMeta: copier.FileMeta{ModTime: when, Size: 10},
		TargetMeta: copier.FileMeta{ModTime: when, Size: 3},
	}

	for input, want := range map[string]copier.Answer{
		"y\n": copier.AnswerYes,
		"n\n": copier.AnswerNo,
		"a\n": copier.AnswerAppend,
		"l\n": copier.AnswerAll,
		"u\n": copier.AnswerUpdate,
		"z\n": copier.AnswerSizeDiffers,
		"o\n": copier.AnswerNone,
		"c\n": copier.AnswerAbort,
		"":    copier.AnswerAbort,
	} {
		ui, out := newUI(input)
		assert.Equal(t, want, ui.FileExists(context.Background(), c), "input %q", input)
		assert.Contains(t, out.String(), `Target file "/b" already exists!`)
		assert.Contains(t, out.String(), "Source: date 2024-01-02 03:04, size 10 bytes")
		assert.Contains(t, out.String(), "Target: date 2024-01-02 03:04, size 3 bytes")
	}
}

func TestKeepIncomplete(t *testing.T) {
	ui, out := newUI("k\n")
	assert.True(t, ui.KeepIncomplete(context.Background(), "/b"))
	assert.Contains(t, out.String(), `Incomplete file "/b" was retrieved.`)

	ui, _ = newUI("d\n")
	assert.False(t, ui.KeepIncomplete(context.Background(), "/b"))

	ui, _ = newUI("")
	assert.True(t, ui.KeepIncomplete(context.Background(), "/b"), "end of input keeps")
}

func TestKeepIncomplete_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui, out := newUI("x\nd\n")
	assert.False(t, ui.KeepIncomplete(ctx, "/b"))
	assert.Equal(t, 2, strings.Count(out.String(), "[d]elete [k]eep? "))

	ui, _ = newUI("k\n")
	assert.True(t, ui.KeepIncomplete(ctx, "/b"))
}

func TestProgress(t *testing.T) {
	ui, out := newUI("")
	ui.Progress(copier.Progress{Source: "/a", Target: "/b", Copied: 0, Total: 8192})
	ui.Progress(copier.Progress{Source: "/a", Target: "/b", Copied: 4096, Total: 8192})
	ui.Progress(copier.Progress{Source: "/a", Target: "/b", Copied: 8192, Total: 8192})
	ui.Progress(copier.Progress{Source: "/e", Target: "/f", Copied: 0, Total: 0})

	assert.Equal(t, "/a -> /b  8192/8192 bytes (100%)\n/e -> /f  0/0 bytes (100%)\n", out.String())
}

func TestProgress_Terminal(t *testing.T) {
	ui, out := newUI("s\n")
	ui.tty = true
	ui.Progress(copier.Progress{Source: "/a", Target: "/b", Copied: 50, Total: 100})
	ui.Alert(context.Background(), "boom")

	assert.Equal(t, "\r\033[K/a -> /b  50/100 bytes (50%)\nError: boom\n", out.String())
}

func TestReport(t *testing.T) {
	ui, out := newUI("")
	ui.Report(&copier.Report{Outcome: copier.OutcomeSuccess, Files: 3, Dirs: 1, Bytes: 42, Skipped: 1, Excluded: 2})
	assert.Equal(t, "success: 3 files, 1 directories, 42 bytes, 1 skipped, 2 excluded\n", out.String())
}
