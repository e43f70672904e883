package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crucial707/asset-vault/cmd/cli/root"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Execute the root Cobra command
	if err := root.GetRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
