package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/clinroute"
	"github.com/poiesic/clinroute/config"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/ingestion"
	"github.com/poiesic/clinroute/pipeline"
	"github.com/poiesic/clinroute/reembed"
	"github.com/poiesic/clinroute/retrieval"
	"github.com/poiesic/clinroute/storage/postgres"
	"github.com/urfave/cli/v2"
)

const (
	catalogTools = "tools"
	catalogOrgs  = "orgs"
	catalogAll   = "all"
)

func (r *runner) serveCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	engine, err := r.openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	srv, err := engine.NewServer()
	if err != nil {
		return err
	}
	addr := r.cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	return srv.Run(ctx, addr)
}

func (r *runner) askCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if err := core.ValidateQuery(query); err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	engine, err := r.openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := c.App.Writer
	if c.Bool("stream") {
		for ev := range engine.Pipeline().Stream(ctx, core.NewPipelineState(query)) {
			if ev.Err != nil {
				return ev.Err
			}
			printEvent(out, ev)
		}
		return nil
	}

	state, err := engine.Pipeline().Invoke(ctx, core.NewPipelineState(query))
	if err != nil {
		return err
	}
	printState(out, state)
	return nil
}

func (r *runner) chatCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	engine, err := r.openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	threadID := c.String("thread")
	if threadID != "" {
		if _, err := engine.Conversations().GetThread(ctx, threadID); err != nil {
			return err
		}
	}

	out := c.App.Writer
	fmt.Fprintln(out, "Ask a clinical question. Type quit to leave.")
	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}

		state, err := chatTurn(ctx, engine, threadID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error: %v\n\n", err)
			continue
		}
		printState(out, state)
	}
}

func chatTurn(ctx context.Context, engine *clinroute.Engine, threadID, query string) (core.PipelineState, error) {
	if threadID != "" {
		return engine.Conversations().Ask(ctx, threadID, query)
	}
	return engine.Pipeline().Invoke(ctx, core.NewPipelineState(query))
}

func (r *runner) seedCommand(c *cli.Context) error {
	catalog, err := ingestion.LoadCatalogFile(c.String("file"))
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	engine, err := r.openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	seeder, err := engine.NewSeeder(
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithPoolSize(c.Int("workers")),
	)
	if err != nil {
		return err
	}
	defer seeder.Release()

	result, err := seeder.Seed(ctx, catalog)
	fmt.Fprintf(c.App.Writer, "Seeded %d tools and %d organizations\n", result.Tools, result.Orgs)
	return err
}

func (r *runner) searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if err := core.ValidateQuery(query); err != nil {
		return err
	}
	limit := c.Int("limit")
	if limit < 1 || limit > retrieval.MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", retrieval.ErrInvalidLimit, retrieval.MaxLimit)
	}

	ctx, stop := signalContext(c)
	defer stop()

	engine, err := r.openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := c.App.Writer
	switch c.String("catalog") {
	case catalogTools:
		tools, err := engine.ToolSearcher().Search(ctx, query, limit)
		if err != nil {
			return err
		}
		if len(tools) == 0 {
			fmt.Fprintln(out, "No matching tools.")
		}
		for i, t := range tools {
			fmt.Fprintf(out, "%d. %s [%s] (%.3f)\n", i+1, t.Name, t.Category, t.Similarity)
		}
	case catalogOrgs:
		orgs, err := engine.OrgSearcher().Search(ctx, query, limit)
		if err != nil {
			return err
		}
		if len(orgs) == 0 {
			fmt.Fprintln(out, "No matching organizations.")
		}
		for i, o := range orgs {
			fmt.Fprintf(out, "%d. %s, %s (%.3f)\n", i+1, o.Name, o.Location(), o.Similarity)
		}
	default:
		return fmt.Errorf("unknown catalog %q (valid: %s, %s)", c.String("catalog"), catalogTools, catalogOrgs)
	}
	return nil
}

func (r *runner) reembedCommand(c *cli.Context) error {
	which := c.String("catalog")
	if which != catalogTools && which != catalogOrgs && which != catalogAll {
		return fmt.Errorf("unknown catalog %q (valid: %s, %s, %s)", which, catalogTools, catalogOrgs, catalogAll)
	}
	cfg := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		Retry: reembed.RetryPolicy{
			MaxAttempts: c.Int("max-retries"),
			BaseDelay:   c.Duration("retry-delay"),
			MaxDelay:    reembed.DefaultRetryPolicy().MaxDelay,
		},
	}

	ctx, stop := signalContext(c)
	defer stop()

	engine, err := r.openEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	progress := c.App.ErrWriter
	logger := slog.Default()
	if which == catalogTools || which == catalogAll {
		re, err := reembed.NewReembedder("tools", engine.Tools(), engine.Embedder(), cfg, progress, logger)
		if err != nil {
			return err
		}
		if _, err := re.Run(ctx); err != nil {
			return fmt.Errorf("reembed tools: %w", err)
		}
	}
	if which == catalogOrgs || which == catalogAll {
		re, err := reembed.NewReembedder("organizations", engine.Orgs(), engine.Embedder(), cfg, progress, logger)
		if err != nil {
			return err
		}
		if _, err := re.Run(ctx); err != nil {
			return fmt.Errorf("reembed organizations: %w", err)
		}
	}
	engine.ResetEmbeddingCache()
	return nil
}

func (r *runner) migrateCommand(c *cli.Context) error {
	dsn := r.cfg.Storage.Postgres.DSN
	if c.IsSet("dsn") {
		dsn = c.String("dsn")
	}
	if dsn == "" {
		return errors.New("no PostgreSQL DSN: set storage.postgres.dsn or pass --dsn")
	}
	if r.cfg.Storage.Driver != config.DriverPostgres && !c.IsSet("dsn") {
		slog.Warn("storage driver is not postgres; migrating anyway", "driver", r.cfg.Storage.Driver)
	}

	ctx, stop := signalContext(c)
	defer stop()

	if err := postgres.Migrate(ctx, dsn); err != nil {
		return err
	}
	version, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Database migrated to version %d\n", version)
	return nil
}

func printEvent(w io.Writer, ev pipeline.Event) {
	switch ev.Stage {
	case pipeline.StageSupervisor:
		fmt.Fprintf(w, "[%s] route=%s\n", ev.Stage, ev.State.Route)
	default:
		fmt.Fprintf(w, "[%s] %d tools, %d organizations\n", ev.Stage, len(ev.State.ToolsResults), len(ev.State.OrgsResults))
		printState(w, ev.State)
	}
}

func printState(w io.Writer, state core.PipelineState) {
	conf := state.Confidence
	fmt.Fprintf(w, "Route: %s\n", state.Route)
	fmt.Fprintf(w, "Confidence: overall=%.2f routing=%.2f retrieval=%.2f response=%.2f\n\n",
		conf.Overall, conf.Routing, conf.Retrieval, conf.Response)
	fmt.Fprintln(w, state.Response)
	fmt.Fprintln(w)
}
