// Command fathom runs the confidential document oracle.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/anynomousfriend/Fathom-0x/internal/adapters/driving/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
