package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chbridge/internal/metrics"

	// register every storage backend; the catalog config picks one.
	_ "chbridge/internal/storage/all"
)

// main runs the chbridge CLI. An interrupt cancels the command's context;
// a running scan turns that into an abort of its read connection.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand(os.Getenv).ExecuteContext(ctx)
	if ferr := metrics.Flush(); ferr != nil {
		log.Printf("metrics: flush error: %v", ferr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "chbridge: %v\n", err)
		os.Exit(1)
	}
}
