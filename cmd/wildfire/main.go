// Command wildfire keeps the wildfire perimeters that burned within a year
// range and within a distance of a reference point.
//
//	wildfire [in.json] [out.json]
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/data512/internal/adapters/filestore"
	"github.com/samirrijal/data512/internal/bootstrap"
	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/usecases"
	"github.com/samirrijal/data512/internal/pkg/geospatial"
)

func main() {
	ctx, rt, err := bootstrap.Start("wildfire")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := run(ctx, rt, os.Args[1:]); err != nil {
		slog.Error("wildfire filter failed", "error", err)
		rt.Close()
		os.Exit(1)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime, args []string) error {
	cfg := rt.Config.Wildfire
	in := bootstrap.Arg(args, 0, cfg.Input)
	out := bootstrap.Arg(args, 1, cfg.Output)

	reprojector, release, err := geospatial.NewBoundaryReprojector(geospatial.NorthAmericaAlbers)
	if err != nil {
		return err
	}
	defer release()
	slog.Debug("reprojector ready", "backend", geospatial.Backend)
	svc, err := usecases.NewWildfireService(usecases.WildfireConfig{
		Reference: domain.ReferencePoint{
			Name:  cfg.ReferenceName,
			Point: domain.GeoPoint{Lat: cfg.ReferenceLat, Lon: cfg.ReferenceLon},
		},
		MinYear:          cfg.MinYear,
		MaxYear:          cfg.MaxYear,
		MaxDistanceMiles: cfg.MaxDistanceMiles,
		YearField:        cfg.YearField,
		NameFields:       cfg.NameFields,
		DistanceField:    cfg.DistanceField,
		Workers:          cfg.Workers,
		ProgressEvery:    cfg.ProgressEvery,
	}, reprojector)
	if err != nil {
		return err
	}

	fc, err := filestore.ReadFeatureCollection(in)
	if err != nil {
		return err
	}
	slog.Info("features loaded", "path", in, "features", len(fc.Features))

	report, err := svc.Run(ctx, fc.Features)
	if err != nil {
		return err
	}

	included := report.Included
	if included == nil {
		included = []map[string]any{}
	}
	if err := filestore.WriteJSON(out, included); err != nil {
		return err
	}
	rt.Written(ctx, out, len(included))

	if cfg.GeoJSONOutput != "" {
		if err := filestore.WriteJSON(cfg.GeoJSONOutput, report.Perimeters); err != nil {
			return err
		}
		rt.Written(ctx, cfg.GeoJSONOutput, len(report.Perimeters.Features))
	}
	return nil
}
