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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poiesic/clinroute"
	"github.com/poiesic/clinroute/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runner carries state shared by every command: the loaded configuration
// and the options used to build an engine.
type runner struct {
	cfg        *config.Config
	engineOpts []clinroute.EngineOption
}

func newApp(engineOpts ...clinroute.EngineOption) *cli.App {
	r := &runner{engineOpts: engineOpts}
	return &cli.App{
		Name:  "clinroute",
		Usage: "Route clinical questions to tool, organization and workflow specialists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   config.DefaultConfigFile,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to dotenv file",
				Value: config.DefaultEnvFile,
			},
		},
		Before: r.setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API",
				Action: r.serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides server.addr)",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a single query",
				ArgsUsage: "<query>",
				Action:    r.askCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "stream",
						Usage: "Print each pipeline stage as it completes",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Interactive session (quit, exit or q to leave)",
				Action: r.chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "thread",
						Usage: "Conversation thread ID; turns are saved to it",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load tools and organizations from a YAML catalog file",
				Action: r.seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to catalog YAML file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records embedded per call",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent embedding workers",
						Value: 4,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a raw similarity search against one catalog",
				ArgsUsage: "<query>",
				Action:    r.searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "Catalog to search (tools, orgs)",
						Value: catalogTools,
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute catalog embeddings with the configured embedding model",
				Action: r.reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "Catalog to reembed (tools, orgs, all)",
						Value: catalogAll,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Apply PostgreSQL schema migrations",
				Action: r.migrateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dsn",
						Usage: "PostgreSQL connection string (overrides storage.postgres.dsn)",
					},
				},
			},
		},
	}
}

// setup loads the configuration and installs the default logger. The
// --log-level flag wins over the configured level when given.
func (r *runner) setup(c *cli.Context) error {
	cfg, err := config.LoadFrom(c.String("config"), c.String("env-file"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	r.cfg = cfg
	return nil
}

func (r *runner) openEngine(ctx context.Context) (*clinroute.Engine, error) {
	engine, err := clinroute.NewEngine(ctx, r.cfg, r.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return engine, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}
