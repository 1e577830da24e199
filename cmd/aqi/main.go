// Command aqi builds a daily fire-season AQI series for one county from EPA
// AQS daily summaries.
//
//	aqi [out.csv]
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/data512/internal/adapters/aqs"
	"github.com/samirrijal/data512/internal/adapters/filestore"
	"github.com/samirrijal/data512/internal/bootstrap"
	"github.com/samirrijal/data512/internal/core/usecases"
)

func main() {
	ctx, rt, err := bootstrap.Start("aqi")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	if err := rt.Config.RequireAQSCredentials(); err != nil {
		rt.Close()
		log.Fatalf("config: %v", err)
	}

	if err := run(ctx, rt, os.Args[1:]); err != nil {
		slog.Error("aqi acquisition failed", "error", err)
		rt.Close()
		os.Exit(1)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime, args []string) error {
	cfg := rt.Config.AQS
	out := bootstrap.Arg(args, 0, cfg.Output)

	state, county := cfg.State, cfg.County
	if cfg.FIPS != "" {
		var err error
		if state, county, err = aqs.SplitFIPS(cfg.FIPS); err != nil {
			return err
		}
	}

	client := aqs.NewClient(
		rt.HTTPClient("aqs", cfg.RequestsPerSecond, rt.Config.PrimaryUserAgent(cfg.Email)),
		cfg.BaseURL, cfg.Email, cfg.Key,
	)
	svc := usecases.NewAQIService(client, usecases.AQIConfig{
		State:             state,
		County:            county,
		GaseousParams:     cfg.GaseousParams,
		ParticulateParams: cfg.ParticulateParams,
		StartYear:         cfg.StartYear,
		EndYear:           cfg.EndYear,
		SeasonStart:       cfg.SeasonStart,
		SeasonEnd:         cfg.SeasonEnd,
		Concurrency:       cfg.Concurrency,
	})

	days, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	if err := filestore.WriteCSV(out, usecases.AQIHeader, usecases.AQIRows(days)); err != nil {
		return err
	}
	rt.Written(ctx, out, len(days))
	return nil
}
