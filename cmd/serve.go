package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/lbx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve exposes a paginator over the local JSON API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFeeds(); err != nil {
		return err
	}
	user, token, err := r.credentials(false)
	if err != nil {
		return err
	}
	feedType, err := parseFeedType(cmd.String("type"))
	if err != nil {
		return err
	}

	var forgetter server.EventForgetter
	if cmd.Bool("archive") {
		archive, closeArchive, err := r.openArchive(ctx)
		if err != nil {
			return err
		}
		defer closeArchive()
		forgetter = archive
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := r.logger.With("component", "server")
	handler := server.NewFeedHandler(r.newPaginator(feedType), user, token, forgetter, logger)

	r.writePlain("Serving %s for %s on http://%s/feed\n", feedType.Title(), user, addr)
	if err := server.Serve(ctx, addr, server.NewFeedRouter(handler, logger), logger); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
