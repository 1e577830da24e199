// Command pageviews-merge sums the pageviews of two access types into a third
// artifact.
//
//	pageviews-merge <access1> <access2> <out-access> [delete-originals]
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/samirrijal/data512/internal/adapters/filestore"
	"github.com/samirrijal/data512/internal/bootstrap"
	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/usecases"
)

func main() {
	if len(os.Args) < 4 {
		bootstrap.Usage(os.Stderr, "pageviews-merge", "<access1> <access2> <out-access> [delete-originals]")
		os.Exit(2)
	}

	ctx, rt, err := bootstrap.Start("pageviews-merge")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := run(ctx, rt, os.Args[1:]); err != nil {
		slog.Error("pageview merge failed", "error", err)
		rt.Close()
		os.Exit(1)
	}
	rt.Close()
}

func run(ctx context.Context, rt *bootstrap.Runtime, args []string) error {
	cfg := rt.Config.Pageviews
	deleteOriginals, err := strconv.ParseBool(bootstrap.Arg(args, 3, "false"))
	if err != nil {
		return err
	}

	path := func(access string) string {
		return usecases.PageviewsPath(rt.Config.DataDir, cfg.OutputPrefix, access, cfg.Start, cfg.End)
	}
	firstPath, secondPath, outPath := path(args[0]), path(args[1]), path(args[2])

	var first, second domain.PageviewSet
	if err := filestore.ReadJSON(firstPath, &first); err != nil {
		return err
	}
	if err := filestore.ReadJSON(secondPath, &second); err != nil {
		return err
	}

	merged := usecases.MergePageviews(first, second)
	if err := filestore.WriteJSON(outPath, merged); err != nil {
		return err
	}
	rt.Written(ctx, outPath, len(merged))

	if deleteOriginals {
		for _, p := range []string{firstPath, secondPath} {
			if err := filestore.Remove(p); err != nil {
				return err
			}
		}
		slog.Info("merged inputs removed", "first", firstPath, "second", secondPath)
	}
	return nil
}
