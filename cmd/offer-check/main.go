// Command offer-check validates offer seed files before they are handed to the
// api-server and reports offers that can never be applied.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cart-offer/internal/domain/offer"
	"github.com/xenking/cart-offer/internal/seed"
)

func main() {
	var strict bool
	flag.BoolVar(&strict, "strict", false, "exit with an error if any offer is unreachable")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: offer-check [-strict] FILE [FILE...]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, strict); err != nil {
		slog.Error("offer check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("offer check completed successfully")
}

func run(ctx context.Context, files []string, strict bool) error {
	// Files are parsed concurrently, then merged in argument order so that
	// precedence matches what the api-server would see for a concatenated seed.
	registries := make([]*offer.Registry, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			r := offer.NewRegistry()
			n, err := seed.LoadFile(gCtx, path, r)
			if err != nil {
				return err
			}
			slog.Info("file parsed", slog.String("path", path), slog.Int("offers", n))
			registries[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	merged := offer.NewRegistry()
	for _, r := range registries {
		for _, o := range r.List() {
			merged.Add(o)
		}
	}

	unreachable := Unreachable(merged)
	for _, o := range unreachable {
		slog.Warn("offer is never applied",
			slog.String("offer_id", o.ID),
			slog.Int64("restaurant_id", o.RestaurantID),
			slog.String("offer_type", string(o.Type)),
			slog.Any("segments", o.Segments),
		)
	}

	slog.Info("summary",
		slog.Int("files", len(files)),
		slog.Int("offers", merged.Len()),
		slog.Int("unreachable", len(unreachable)),
	)

	if strict && len(unreachable) > 0 {
		return errors.Errorf("%d unreachable offers", len(unreachable))
	}
	return nil
}

// Unreachable returns offers that lose every lookup they could win: each of
// their segments is already claimed by an earlier offer for the same
// restaurant. Offers without segments are always unreachable.
func Unreachable(r *offer.Registry) []offer.Offer {
	var out []offer.Offer
	for _, o := range r.List() {
		reachable := false
		for _, s := range o.Segments {
			if first, ok := r.FindFirstMatch(o.RestaurantID, s); ok && first.ID == o.ID {
				reachable = true
				break
			}
		}
		if !reachable {
			out = append(out, o)
		}
	}
	return out
}
