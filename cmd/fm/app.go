package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Nazg-Gul/fm/backends/billyfs"
	"github.com/Nazg-Gul/fm/backends/s3"
	"github.com/Nazg-Gul/fm/backends/sftp"
	"github.com/Nazg-Gul/fm/config"
	"github.com/Nazg-Gul/fm/copier"
	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/internal/termui"
	"github.com/Nazg-Gul/fm/metrics"
	"github.com/Nazg-Gul/fm/vfs"
	"github.com/Nazg-Gul/fm/vfs/loader"
	"github.com/Nazg-Gul/fm/vfs/registry"
)

type app struct {
	opts   *options
	cfg    *config.Config
	log    *logrus.Entry
	reg    *registry.Registry
	ui     *termui.UI
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	// With -json stdout carries only the JSON document.
	uiOut := stdout
	if opts.json {
		uiOut = stderr
	}
	a := &app{opts: opts, ui: termui.New(stdin, uiOut), stdout: stdout, stderr: stderr}
	if err := a.configure(); err != nil {
		a.fail(err)
		return exitError
	}

	if opts.command == "config" {
		return a.printConfig()
	}

	a.reg = a.buildRegistry()
	defer func() {
		if err := a.reg.Close(); err != nil {
			a.log.WithError(err).Warn("Closing backends")
		}
	}()

	switch opts.command {
	case "plugins":
		return a.listPlugins()
	default:
		return a.transfer(ctx)
	}
}

// configure loads the configuration file and applies flag overrides.
func (a *app) configure() error {
	cfg := config.Default()
	if a.opts.configPath != "" {
		loaded, err := config.Load(a.opts.configPath)
		if err != nil {
			a.setupLogger(cfg)
			return err
		}
		cfg = loaded
	}

	if a.opts.logLevel != "" {
		if _, err := logrus.ParseLevel(a.opts.logLevel); err != nil {
			a.setupLogger(cfg)
			return errors.WithContext(errors.Wrap(err, errors.CodeInvalidArgument, "invalid -log-level"),
				"value", a.opts.logLevel)
		}
		cfg.LogLevel = a.opts.logLevel
	}
	if a.opts.bufferSize != 0 {
		cfg.BufferSize = a.opts.bufferSize
	}
	if len(a.opts.exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, a.opts.exclude...)
	}
	if a.opts.metricsAddr != "" {
		cfg.MetricsAddr = a.opts.metricsAddr
	}

	a.cfg = cfg
	a.setupLogger(cfg)
	return nil
}

func (a *app) setupLogger(cfg *config.Config) {
	logger := logrus.New()
	logger.SetOutput(a.stderr)
	logger.SetLevel(cfg.Level())
	if a.opts.json {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	a.log = logrus.NewEntry(logger)
}

// buildRegistry registers the built-in backends, the configured remote
// ones and every module found. Remote backends and modules that fail are
// logged and left out.
func (a *app) buildRegistry() *registry.Registry {
	reg := registry.New(registry.WithDefault(a.cfg.DefaultBackend), registry.WithLogger(a.log))

	register := func(kind string, b vfs.Backend, err error) {
		if err == nil {
			err = reg.Register(b)
		}
		if err != nil {
			a.log.WithError(err).WithField("kind", kind).Error("Backend unavailable")
		}
	}

	register("localfs", billyfs.NewLocal(), nil)
	register("memfs", billyfs.NewMemory(), nil)

	for _, c := range a.cfg.S3 {
		b, err := s3.New(c.Backend())
		register("s3", b, err)
	}
	for _, c := range a.cfg.SFTP {
		sc, err := c.Backend()
		var b *sftp.Backend
		if err == nil {
			b, err = sftp.New(sc)
		}
		register("sftp", b, err)
	}

	modules := append([]string{}, a.cfg.Plugins...)
	found, err := loader.Discover(a.cfg.PluginDir)
	if err != nil {
		a.log.WithError(err).Warn("Plugin discovery failed")
	}
	modules = append(modules, found...)
	for _, path := range modules {
		if name, err := reg.Load(path); err == nil {
			a.log.WithField("backend", name).Debug("Module registered")
		}
	}

	return reg
}

func (a *app) transfer(ctx context.Context) int {
	exclude, err := copier.CompileExclude(a.cfg.Exclude...)
	if err != nil {
		a.fail(err)
		return exitError
	}

	collector := metrics.New(nil)
	if a.cfg.MetricsAddr != "" {
		stop, err := a.serveMetrics(collector)
		if err != nil {
			a.fail(err)
			return exitError
		}
		defer stop()
	}

	c := copier.New(a.reg, a.ui,
		copier.WithBufferSize(a.cfg.BufferSize),
		copier.WithProgress(a.ui),
		copier.WithRecorder(collector),
		copier.WithLogger(a.log),
		copier.WithExclude(exclude...),
	)

	src, dst := a.opts.args[0], a.opts.args[1]
	var report *copier.Report
	if a.opts.command == "mv" {
		report, err = c.Move(ctx, src, dst)
	} else {
		report, err = c.Copy(ctx, src, dst)
	}
	collector.RecordRun(a.opts.command, report.Outcome)

	if a.opts.json {
		a.writeJSON(reportJSON(report, err))
	} else {
		a.ui.Report(report)
	}

	switch report.Outcome {
	case copier.OutcomeFatal, copier.OutcomeAborted:
		return exitError
	}
	return exitOK
}

// serveMetrics starts the metrics endpoint and returns a function that
// shuts it down.
func (a *app) serveMetrics(collector *metrics.Collector) (func(), error) {
	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeIO, "cannot listen for metrics",
			map[string]interface{}{"addr": a.cfg.MetricsAddr})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("Metrics server stopped")
		}
	}()
	a.log.WithField("addr", ln.Addr().String()).Info("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func (a *app) listPlugins() int {
	infos := a.reg.List()
	if a.opts.json {
		a.writeJSON(infos)
		return exitOK
	}
	for _, info := range infos {
		caps := make([]string, len(info.Capabilities))
		for i, op := range info.Capabilities {
			caps[i] = op.String()
		}
		marker := " "
		if info.Default {
			marker = "*"
		}
		source := "built-in"
		if info.Path != "" {
			source = info.Path
		}
		fmt.Fprintf(a.stdout, "%s %-10s %s\n    %s\n", marker, info.Name, source, strings.Join(caps, " "))
	}
	return exitOK
}

func (a *app) printConfig() int {
	if a.opts.json {
		a.writeJSON(a.cfg)
		return exitOK
	}
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(a.cfg); err != nil {
		a.fail(errors.Wrap(err, errors.CodeInternal, "cannot encode configuration"))
		return exitError
	}
	_ = enc.Close()
	return exitOK
}

// fail reports a setup error.
func (a *app) fail(err error) {
	if a.opts.json {
		enc := json.NewEncoder(a.stderr)
		_ = enc.Encode(map[string]interface{}{"error": errors.ToJSON(err)})
		return
	}
	fmt.Fprintf(a.stderr, "Error: %s\n", errors.Describe(err))
}

func (a *app) writeJSON(v interface{}) {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		a.log.WithError(err).Error("Cannot encode output")
	}
}

type jsonReport struct {
	Outcome  string                `json:"outcome"`
	Session  string                `json:"session"`
	Files    int                   `json:"files"`
	Dirs     int                   `json:"dirs"`
	Skipped  int                   `json:"skipped"`
	Excluded int                   `json:"excluded"`
	Bytes    int64                 `json:"bytes"`
	Error    *errors.ErrorResponse `json:"error,omitempty"`
}

func reportJSON(r *copier.Report, err error) jsonReport {
	return jsonReport{
		Outcome:  r.Outcome.String(),
		Session:  r.Session,
		Files:    r.Files,
		Dirs:     r.Dirs,
		Skipped:  r.Skipped,
		Excluded: r.Excluded,
		Bytes:    r.Bytes,
		Error:    errors.ToJSON(err),
	}
}
