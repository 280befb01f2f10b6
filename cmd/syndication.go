package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/lbx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Syndication prints a user's public events feed. It does not need a token.
func (r *Runner) Syndication(ctx context.Context, cmd *cli.Command) error {
	if r.syndication == nil {
		return fmt.Errorf("%w: syndication service not initialized", shared.ErrServiceUnavailable)
	}

	user := cmd.StringArg("username")
	if user == "" {
		user = r.config.ListenBrainz.Username
	}
	if user == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	feed, err := r.syndication.Events(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to read public feed: %w", err)
	}

	limit := cmd.Int("limit")
	if limit > 0 && len(feed.Items) > limit {
		feed.Items = feed.Items[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(feed, cmd.Bool("pretty"))
	}

	r.writePlainHeader(feed.Title)
	r.writePlain("%s\n\n", r.syndication.FeedURL(user))

	now := time.Now()
	for i, item := range feed.Items {
		when := ""
		if !item.Published.IsZero() {
			when = shared.FormatRelative(item.Published.Unix(), now)
		}
		r.writePlain("%3d. %s", i+1, item.Title)
		if when != "" {
			r.writePlain(" (%s)", when)
		}
		r.writePlain("\n")
	}
	return nil
}
