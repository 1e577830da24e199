// Command pageviews fetches monthly pageviews of a list of Wikipedia articles
// for one access type.
//
//	pageviews <access> [titles.csv]
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/data512/internal/adapters/filestore"
	"github.com/samirrijal/data512/internal/adapters/wikimedia"
	"github.com/samirrijal/data512/internal/bootstrap"
	"github.com/samirrijal/data512/internal/core/usecases"
)

func main() {
	if len(os.Args) < 2 {
		bootstrap.Usage(os.Stderr, "pageviews", "<access> [titles.csv]")
		os.Exit(2)
	}

	ctx, rt, err := bootstrap.Start("pageviews")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := run(ctx, rt, os.Args[1:]); err != nil {
		slog.Error("pageview acquisition failed", "error", err)
		rt.Close()
		os.Exit(1)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime, args []string) error {
	cfg := rt.Config.Pageviews
	access := args[0]
	titlesFile := bootstrap.Arg(args, 1, cfg.TitlesFile)

	titles, err := filestore.ReadColumn(titlesFile, cfg.TitleColumn)
	if err != nil {
		return err
	}
	if len(titles) == 0 {
		return fmt.Errorf("%s has no titles in column %q", titlesFile, cfg.TitleColumn)
	}

	client := wikimedia.NewPageviewsClient(
		rt.HTTPClient("pageviews", cfg.RequestsPerSecond, ""),
		cfg.Endpoint,
		wikimedia.PageviewsParams{
			Project:     cfg.Project,
			Agent:       cfg.Agent,
			Granularity: cfg.Granularity,
			Start:       cfg.Start,
			End:         cfg.End,
		},
	)

	set, stats, err := usecases.NewPageviewService(client, cfg.Concurrency).Fetch(ctx, titles, access)
	if err != nil {
		return err
	}

	out := usecases.PageviewsPath(rt.Config.DataDir, cfg.OutputPrefix, access, cfg.Start, cfg.End)
	if err := filestore.WriteJSON(out, set); err != nil {
		return err
	}
	rt.Written(ctx, out, len(set))
	slog.Info("pageview run complete", "requested", stats.Requested, "failed", stats.Failed)
	return nil
}
