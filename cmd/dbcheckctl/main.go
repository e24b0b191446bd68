package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dbcheck/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "dbcheckctl:", err)
		os.Exit(1)
	}
}
