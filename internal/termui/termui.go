// Package termui is a line-oriented terminal front end for the copy engine.
// It asks the operator's questions on a reader/writer pair and prints
// progress; it does not draw widgets.
package termui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/Nazg-Gul/fm/copier"
)

// choice binds an answer to the key that selects it.
type choice struct {
	key    string
	label  string
	answer copier.Answer
}

var errorChoices = []choice{
	{"r", "[r]etry", copier.AnswerRetry},
	{"s", "[s]kip", copier.AnswerSkip},
	{"i", "[i]gnore", copier.AnswerIgnore},
	{"c", "[c]ancel", copier.AnswerCancel},
}

var conflictChoices = []choice{
	{"y", "[y]es", copier.AnswerYes},
	{"n", "[n]o", copier.AnswerNo},
	{"a", "[a]ppend", copier.AnswerAppend},
	{"l", "a[l]l", copier.AnswerAll},
	{"u", "[u]pdate", copier.AnswerUpdate},
	{"z", "si[z]e differs", copier.AnswerSizeDiffers},
	{"o", "n[o]ne", copier.AnswerNone},
	{"c", "[c]ancel", copier.AnswerAbort},
}

// UI implements copier.Operator and copier.ProgressSink.
type UI struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// tty redraws progress in place instead of printing one line per file.
	tty     bool
	pending bool // a progress line is on screen without a newline
}

var (
	_ copier.Operator     = (*UI)(nil)
	_ copier.ProgressSink = (*UI)(nil)
)

// New returns a UI reading answers from in and writing to out.
func New(in io.Reader, out io.Writer) *UI {
	u := &UI{in: bufio.NewReader(in), out: out}
	if f, ok := out.(*os.File); ok {
		u.tty = term.IsTerminal(int(f.Fd()))
	}
	return u
}

// Error shows the failed step and reads one of the offered answers.
func (u *UI) Error(ctx context.Context, p copier.ErrorPrompt) copier.Answer {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.endLine()
	fmt.Fprintf(u.out, "Error: %s\n", p.String())
	return u.ask(ctx, offered(errorChoices, p.Answers), copier.AnswerCancel)
}

// FileExists shows both files and reads the operator's decision.
func (u *UI) FileExists(ctx context.Context, c copier.Conflict) copier.Answer {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.endLine()
	fmt.Fprintln(u.out, c.Message())
	fmt.Fprintf(u.out, "  Source: %s\n", c.SourceMeta)
	fmt.Fprintf(u.out, "  Target: %s\n", c.TargetMeta)
	return u.ask(ctx, offered(conflictChoices, copier.ConflictAnswers), copier.AnswerAbort)
}

// KeepIncomplete asks whether to keep a partially written file. Only an
// explicit delete removes it; cancellation and end of input keep it.
func (u *UI) KeepIncomplete(_ context.Context, target string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.endLine()
	fmt.Fprintf(u.out, "Incomplete file %q was retrieved.\n", target)
	keep := []choice{{"d", "[d]elete", copier.AnswerNo}, {"k", "[k]eep", copier.AnswerYes}}
	return u.ask(context.Background(), keep, copier.AnswerYes) == copier.AnswerYes
}

// Alert prints message.
func (u *UI) Alert(_ context.Context, message string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.endLine()
	fmt.Fprintf(u.out, "Error: %s\n", message)
}

// Progress prints the state of the current file.
func (u *UI) Progress(p copier.Progress) {
	u.mu.Lock()
	defer u.mu.Unlock()

	line := fmt.Sprintf("%s -> %s  %d/%d bytes (%d%%)", p.Source, p.Target, p.Copied, p.Total, percent(p))
	switch {
	case u.tty:
		fmt.Fprintf(u.out, "\r\033[K%s", line)
		u.pending = p.Copied < p.Total
		if !u.pending {
			fmt.Fprintln(u.out)
		}
	case p.Copied == p.Total:
		fmt.Fprintln(u.out, line)
	}
}

// Report prints the summary of a finished run.
func (u *UI) Report(r *copier.Report) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.endLine()
	fmt.Fprintf(u.out, "%s: %d files, %d directories, %d bytes", r.Outcome, r.Files, r.Dirs, r.Bytes)
	if r.Skipped > 0 {
		fmt.Fprintf(u.out, ", %d skipped", r.Skipped)
	}
	if r.Excluded > 0 {
		fmt.Fprintf(u.out, ", %d excluded", r.Excluded)
	}
	fmt.Fprintln(u.out)
}

// ask prints the menu and reads lines until one selects a choice. End of
// input, a read error or a cancelled ctx answer fallback.
func (u *UI) ask(ctx context.Context, choices []choice, fallback copier.Answer) copier.Answer {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.label
	}
	menu := strings.Join(labels, " ") + "? "

	for {
		if ctx.Err() != nil {
			return fallback
		}
		fmt.Fprint(u.out, menu)
		line, err := u.in.ReadString('\n')
		key := strings.ToLower(strings.TrimSpace(line))
		for _, c := range choices {
			if key == c.key {
				return c.answer
			}
		}
		if err != nil {
			fmt.Fprintln(u.out)
			return fallback
		}
	}
}

func (u *UI) endLine() {
	if u.pending {
		fmt.Fprintln(u.out)
		u.pending = false
	}
}

// offered keeps the choices whose answer is in answers, in menu order.
func offered(choices []choice, answers []copier.Answer) []choice {
	var out []choice
	for _, c := range choices {
		for _, a := range answers {
			if c.answer == a {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func percent(p copier.Progress) int64 {
	if p.Total <= 0 {
		return 100
	}
	return p.Copied * 100 / p.Total
}
