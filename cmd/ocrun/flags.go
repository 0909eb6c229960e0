package main

import (
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ocrun/internal/logger"
)

var (
	cardID      string
	layoutPath  string
	execTimeout time.Duration
	noIRQ       bool
	logLevel    string
	logFormat   string
	debug       bool
)

func commonCardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "card",
			Aliases:     []string{"C"},
			Usage:       "card number, device node path, or sim[:action]",
			Value:       "0",
			Destination: &cardID,
		},
		&cli.StringFlag{
			Name:        "layout",
			Aliases:     []string{"L"},
			Usage:       "path to a register layout profile (JSON)",
			Destination: &layoutPath,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Aliases:     []string{"t"},
			Usage:       "job completion timeout",
			Value:       10 * time.Second,
			Destination: &execTimeout,
		},
		&cli.BoolFlag{
			Name:        "no-irq",
			Aliases:     []string{"N"},
			Usage:       "poll for completion instead of waiting on the interrupt",
			Destination: &noIRQ,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.Text(os.Stderr, level)
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
