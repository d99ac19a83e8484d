package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmdRoot.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run ghostwriter: %v\n", err)
		stop()
		os.Exit(1)
	}
}
