package main

import "github.com/urfave/cli/v3"

var (
	configFile       string
	filePath         string
	pageSize         int64
	cachePages       int64
	largeThreshold   int64
	tempDir          string
	progressInterval int64
	logLevel         string
	logFormat        string
	debug            bool
)

func globalFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $XDG_CONFIG_HOME/r1cs/config.yaml)",
			Destination: &configFile,
		},
	}
	flags = append(flags, storageFlags()...)
	return append(flags, loggingFlags()...)
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to .r1cs file",
		Required:    true,
		Destination: &filePath,
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "page-size",
			Usage:       "page size in bytes of the file cache (0 = 1 MiB)",
			Destination: &pageSize,
		},
		&cli.Int64Flag{
			Name:        "cache-pages",
			Usage:       "number of file pages kept in memory (0 = 64)",
			Destination: &cachePages,
		},
		&cli.Int64Flag{
			Name:        "large-threshold",
			Usage:       "element count above which decoded lists are paged to disk (0 = 1048576)",
			Destination: &largeThreshold,
		},
		&cli.StringFlag{
			Name:        "temp-dir",
			Usage:       "directory for paged list databases",
			Destination: &tempDir,
		},
		&cli.Int64Flag{
			Name:        "progress-interval",
			Usage:       "items between progress lines (0 = per-section default)",
			Destination: &progressInterval,
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
