// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/knownet/logging"
)

const (
	metaConfig    = "config"
	metaLogCloser = "log-closer"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "knownet",
		Usage: "Build a knowledge graph from the articles linked on a web page",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
				EnvVars: []string{"KNOWNET_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file, rotated by size",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables (API keys) from this file",
				Value: ".env",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			crawlCommand(),
			neighborhoodCommand(),
			clearCacheCommand(),
		},
	}
}

// setup loads .env and the config file, then installs the default logger.
func setup(c *cli.Context) error {
	if err := godotenv.Load(c.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaConfig] = cfg

	levelStr := stringSetting(c, "log-level", cfg.Log.Level)
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return err
	}

	var console io.Writer = c.App.ErrWriter
	if console == nil {
		console = os.Stderr
	}
	logger, closer, err := logging.New(logging.Options{
		Level:   level,
		Console: console,
		File:    stringSetting(c, "log-file", cfg.Log.File),
	})
	if err != nil {
		return err
	}
	c.App.Metadata[metaLogCloser] = closer
	slog.SetDefault(logger)
	return nil
}

func teardown(c *cli.Context) error {
	if closer, ok := c.App.Metadata[metaLogCloser].(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func configFrom(c *cli.Context) *fileConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*fileConfig); ok {
		return cfg
	}
	return &fileConfig{}
}
