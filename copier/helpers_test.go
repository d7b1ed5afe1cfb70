package copier

import (
	"context"
	"path"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Nazg-Gul/fm/vfs/registry"
	"github.com/Nazg-Gul/fm/vfs/vfstest"
)

// operator replays scripted answers and records every question. An
// exhausted script answers cancel and refuses to keep incomplete files.
type operator struct {
	mu sync.Mutex

	errorAnswers    []Answer
	conflictAnswers []Answer
	keep            bool

	prompts   []ErrorPrompt
	conflicts []Conflict
	keepAsked []string
	keepErrs  []error
	alerts    []string
}

func (o *operator) Error(_ context.Context, p ErrorPrompt) Answer {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prompts = append(o.prompts, p)
	if len(o.errorAnswers) == 0 {
		return AnswerCancel
	}
	a := o.errorAnswers[0]
	o.errorAnswers = o.errorAnswers[1:]
	return a
}

func (o *operator) FileExists(_ context.Context, c Conflict) Answer {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conflicts = append(o.conflicts, c)
	if len(o.conflictAnswers) == 0 {
		return AnswerCancel
	}
	a := o.conflictAnswers[0]
	o.conflictAnswers = o.conflictAnswers[1:]
	return a
}

func (o *operator) KeepIncomplete(ctx context.Context, target string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keepAsked = append(o.keepAsked, target)
	o.keepErrs = append(o.keepErrs, ctx.Err())
	return o.keep
}

func (o *operator) Alert(_ context.Context, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.alerts = append(o.alerts, message)
}

type progressLog struct {
	updates []Progress
}

func (p *progressLog) Progress(u Progress) {
	p.updates = append(p.updates, u)
}

func (p *progressLog) last() Progress {
	if len(p.updates) == 0 {
		return Progress{}
	}
	return p.updates[len(p.updates)-1]
}

type countingRecorder struct {
	files map[Outcome]int
	bytes int64
}

func (r *countingRecorder) FileDone(o Outcome) {
	if r.files == nil {
		r.files = make(map[Outcome]int)
	}
	r.files[o]++
}

func (r *countingRecorder) Bytes(n int64) { r.bytes += n }

// fixture is a registry whose default backend is an instrumented memory
// backend named "mem".
type fixture struct {
	reg  *registry.Registry
	mem  *vfstest.Memory
	op   *operator
	logs *test.Hook
	log  *logrus.Entry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger)

	reg := registry.New(registry.WithDefault("mem"), registry.WithLogger(log))
	mem := vfstest.NewMemory("mem")
	require.NoError(t, reg.Register(mem))

	return &fixture{reg: reg, mem: mem, op: &operator{}, logs: hook, log: log}
}

func (f *fixture) copier(opts ...Option) *Copier {
	return New(f.reg, f.op, append([]Option{WithLogger(f.log)}, opts...)...)
}

// addObjectStore registers a second backend named "obj" with the
// capability set of an object store.
func (f *fixture) addObjectStore(t *testing.T) *vfstest.Memory {
	t.Helper()
	m := vfstest.NewMemory("obj")
	require.NoError(t, f.reg.Register(vfstest.ObjectStore(m)))
	return m
}

func (f *fixture) writeFile(t *testing.T, name, data string) {
	t.Helper()
	require.NoError(t, f.mem.MkdirAll(path.Dir(name), 0o755))
	require.NoError(t, f.mem.WriteFile(name, []byte(data), 0o644))
}

func (f *fixture) readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := f.mem.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

// released requires every listed directory entry to have been released.
func (f *fixture) released(t *testing.T) {
	t.Helper()
	require.Equal(t, f.mem.Listed(), f.mem.Released(), "listed and released entries")
	require.Equal(t, 0, f.mem.OpenFiles(), "open files")
	require.Equal(t, 0, f.reg.OpenHandles("mem"), "registry handles")
}
