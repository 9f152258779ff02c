package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iso27001/tracker/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewApp(version), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
