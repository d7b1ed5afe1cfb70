package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	configPath  string
	logLevel    string
	json        bool
	bufferSize  int
	exclude     stringList
	metricsAddr string

	command string
	args    []string
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("fm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to the YAML configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.BoolVar(&opts.json, "json", false, "Log and report as JSON")
	fs.IntVar(&opts.bufferSize, "buffer", 0, "Copy buffer size in bytes")
	fs.Var(&opts.exclude, "exclude", "Glob of entry names to leave out (repeatable)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: fm [flags] cp|mv SRC DST")
		fmt.Fprintln(stderr, "       fm [flags] plugins|config")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return nil, fmt.Errorf("missing command")
	}
	opts.command, opts.args = rest[0], rest[1:]

	want := 0
	switch opts.command {
	case "cp", "mv":
		want = 2
	case "plugins", "config":
	default:
		fs.Usage()
		return nil, fmt.Errorf("unknown command %q", opts.command)
	}
	if len(opts.args) != want {
		fs.Usage()
		return nil, fmt.Errorf("%s takes %d arguments, got %d", opts.command, want, len(opts.args))
	}
	return opts, nil
}
