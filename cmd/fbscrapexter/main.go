// cmd/fbscrapexter/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/valpere/FBScrapexter/internal/errors"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, flags := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, errors.NewMessageHandler(flags.verbose > 0).FormatForCLI(err))
		stop()
		os.Exit(errors.ExitCode(err))
	}
}
