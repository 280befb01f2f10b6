package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistShow prints the tracks of a ListenBrainz playlist.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	mbid := cmd.StringArg("mbid")
	if mbid == "" {
		return fmt.Errorf("%w: playlist MBID", shared.ErrMissingArgument)
	}
	if r.playlists == nil {
		return fmt.Errorf("%w: ListenBrainz service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("fetching playlist", "mbid", mbid)

	playlist, err := r.playlists.Playlist(ctx, mbid, r.config.ListenBrainz.Token)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.writePlainHeader(playlist.Title)
	if playlist.Creator != "" {
		r.writePlain("Creator: %s\n", playlist.Creator)
	}
	r.writePlain("Tracks: %d\n\n", len(playlist.Tracks))

	for i, track := range playlist.Tracks {
		r.writePlain("%3d. %s - %s", i+1, track.Creator, track.Title)
		if track.Album != "" {
			r.writePlain(" (%s)", track.Album)
		}
		r.writePlain("\n")
		if url := models.MusicBrainzURL(track); url != "" {
			r.writePlain("     %s\n", url)
		}
	}
	return nil
}
