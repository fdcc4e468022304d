package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// Execute parses a command's config, runs it until the context is cancelled
// by SIGINT or SIGTERM, and returns the process exit code. The standard
// logger is prefixed with the upper-cased service name.
func Execute[T any](service string, args []string, parse func(*flag.FlagSet, []string) (T, error), run func(context.Context, T) error) int {
	log.SetPrefix("[" + strings.ToUpper(service) + "] ")

	fs := flag.NewFlagSet(service, flag.ContinueOnError)
	cfg, err := parse(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Printf("parse flags: %v", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("%s stopped: %v", service, err)
		return 1
	}
	return 0
}
