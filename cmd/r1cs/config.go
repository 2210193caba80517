package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/r1cs/internal/bigseq"
	"github.com/samcharles93/r1cs/internal/logger"
	"github.com/samcharles93/r1cs/pkg/binfile"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

// Config represents the config file (~/.config/r1cs/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	// Storage
	PageSize         *int64 `yaml:"page_size"`
	CachePages       *int64 `yaml:"cache_pages"`
	LargeThreshold   *int64 `yaml:"large_threshold"`
	TempDir          string `yaml:"temp_dir"`
	ProgressInterval *int64 `yaml:"progress_interval"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	CircuitsDir   string `yaml:"circuits_dir"`
}

// config is loaded once by setup and read by the serve command.
var config Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "r1cs", "config.yaml")
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit one is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyGlobalConfig applies config file defaults to the global flag variables
// when the corresponding flag was not explicitly set.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.PageSize != nil && !c.IsSet("page-size") {
		pageSize = *cfg.PageSize
	}
	if cfg.CachePages != nil && !c.IsSet("cache-pages") {
		cachePages = *cfg.CachePages
	}
	if cfg.LargeThreshold != nil && !c.IsSet("large-threshold") {
		largeThreshold = *cfg.LargeThreshold
	}
	if cfg.TempDir != "" && !c.IsSet("temp-dir") {
		tempDir = cfg.TempDir
	}
	if cfg.ProgressInterval != nil && !c.IsSet("progress-interval") {
		progressInterval = *cfg.ProgressInterval
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr, dir *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.CircuitsDir != "" && !c.IsSet("dir") {
		*dir = cfg.CircuitsDir
	}
}

// setup loads the config file and installs the logger in ctx.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	config = cfg
	applyGlobalConfig(cmd, cfg)

	level := logLevel
	if debug {
		level = "debug"
	}
	log, err := logger.Build(stderr(cmd), logFormat, level)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func fileOptions() binfile.Options {
	return binfile.Options{
		PageSize:   int(pageSize),
		CachePages: int(cachePages),
	}
}

func codecOptions(log logger.Logger) r1cs.Options {
	return r1cs.Options{
		Sequence: bigseq.Config{
			Threshold: int(largeThreshold),
			TempDir:   tempDir,
		},
		Logger:           log,
		ProgressInterval: int(progressInterval),
	}
}
