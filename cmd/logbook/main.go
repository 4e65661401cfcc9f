// Package main provides the Fangstlog sync agent. It saves finished trips,
// queues them while the network or DMI is unavailable and drains the queue
// on start, on signals and on a schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/config"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const usage = `usage: logbook <command> [flags]

commands:
  save    -file recording.json [-queue-only]   save a finished trip or queue it
  sync                                         drain the offline queue once
  status  [-json]                              list queued trips
  run                                          drain on start, on connectivity restore,
                                               on schedule, on SIGUSR1 (foreground)
                                               and SIGUSR2 (signed in)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	log := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("service", "fangstlog-logbook").
		Str("version", Version).
		Logger()

	cfg, err := config.LoadLogbook()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.Level())

	a, closeApp, err := newApp(cfg, os.Stdout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sync agent")
	}
	defer closeApp()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "save":
		err = a.save(ctx, args)
	case "sync":
		err = a.sync(ctx)
	case "status":
		err = a.status(ctx, args)
	case "run":
		sigs := make(chan os.Signal, 4)
		signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
		err = a.run(ctx, sigs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		closeApp()
		os.Exit(2) //nolint:gocritic // closeApp already ran
	}

	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("command failed")
		closeApp()
		os.Exit(1)
	}
}
