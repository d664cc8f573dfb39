package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/cli/analyzer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := analyzer.Execute(ctx, os.Args[1:], analyzer.Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	stop()
	os.Exit(code)
}
