// Command pageinfo resolves article titles to their latest revision id.
//
//	pageinfo [titles.csv] [out.csv]
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/data512/internal/adapters/filestore"
	"github.com/samirrijal/data512/internal/adapters/wikimedia"
	"github.com/samirrijal/data512/internal/bootstrap"
	"github.com/samirrijal/data512/internal/core/usecases"
)

func main() {
	ctx, rt, err := bootstrap.Start("pageinfo")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := run(ctx, rt, os.Args[1:]); err != nil {
		slog.Error("page info acquisition failed", "error", err)
		rt.Close()
		os.Exit(1)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime, args []string) error {
	cfg := rt.Config.PageInfo
	in := bootstrap.Arg(args, 0, cfg.TitlesFile)
	out := bootstrap.Arg(args, 1, cfg.Output)

	titles, err := filestore.ReadColumn(in, cfg.TitleColumn)
	if err != nil {
		return err
	}

	client := wikimedia.NewPageInfoClient(
		rt.HTTPClient("pageinfo", cfg.RequestsPerSecond, rt.Config.PrimaryUserAgent(rt.Config.ORES.Email)),
		cfg.Endpoint,
	)
	infos, _, err := usecases.NewPageInfoService(client, 1).Resolve(ctx, titles)
	if err != nil {
		return err
	}

	if err := filestore.WriteCSV(out, usecases.PageInfoHeader, usecases.PageInfoRows(infos)); err != nil {
		return err
	}
	rt.Written(ctx, out, len(infos))
	return nil
}
