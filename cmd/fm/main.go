// Command fm copies and moves files between VFS backends.
//
// Usage:
//
//	fm [flags] cp SRC DST   Copy SRC to DST
//	fm [flags] mv SRC DST   Move SRC to DST
//	fm [flags] plugins      List registered backends
//	fm [flags] config       Print the effective configuration
//
// Paths are VFS URLs: "/abs/path" on the default backend or
// "name::/abs/path" on a named one.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
