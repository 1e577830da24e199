// Command ores predicts the article quality of revisions with the LiftWing
// articlequality model.
//
//	ores [revisions.csv] [out.csv]
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
	ctx, rt, err := bootstrap.Start("ores")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	if err := rt.Config.RequireORESCredentials(); err != nil {
		rt.Close()
		log.Fatalf("config: %v", err)
	}

	if err := run(ctx, rt, os.Args[1:]); err != nil {
		slog.Error("quality scoring failed", "error", err)
		rt.Close()
		os.Exit(1)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime, args []string) error {
	cfg := rt.Config.ORES
	in := bootstrap.Arg(args, 0, cfg.RevisionsFile)
	out := bootstrap.Arg(args, 1, cfg.Output)

	values, err := filestore.ReadColumn(in, cfg.RevisionColumn)
	if err != nil {
		return err
	}
	ids, err := usecases.ParseRevisionIDs(values)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	client := wikimedia.NewORESClient(
		rt.HTTPClient("ores", cfg.RequestsPerSecond, rt.Config.PrimaryUserAgent(cfg.Email)),
		fmt.Sprintf(cfg.Endpoint, cfg.Model),
		cfg.Language,
		cfg.AccessToken,
	)
	scores, _, err := usecases.NewQualityService(client, 1).Score(ctx, ids)
	if err != nil {
		return err
	}

	if err := filestore.WriteCSV(out, usecases.QualityHeader, usecases.QualityRows(scores)); err != nil {
		return err
	}
	rt.Written(ctx, out, len(scores))
	return nil
}
