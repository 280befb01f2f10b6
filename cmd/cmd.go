// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func feedTypeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "type",
		Aliases: []string{"t"},
		Usage:   "Feed to read: events, following or similar",
		Value:   "events",
	}
}

func pagesFlag(value int) cli.Flag {
	return &cli.IntFlag{
		Name:    "pages",
		Aliases: []string{"p"},
		Usage:   "Maximum number of pages to fetch (0 for the whole feed)",
		Value:   value,
	}
}

func recordingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "msid",
			Usage: "Recording MSID",
		},
		&cli.StringFlag{
			Name:  "mbid",
			Usage: "Recording MBID",
		},
		&cli.StringFlag{
			Name:  "track",
			Usage: "Track name",
		},
		&cli.StringFlag{
			Name:  "artist",
			Usage: "Artist name",
		},
	}
}

// setupCommand handles setup operations for configuration and the archive database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the archive database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// feedCommand handles feed browsing, archiving and write actions
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Read and act on ListenBrainz feeds",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the newest events of a feed",
				Flags: []cli.Flag{
					feedTypeFlag(),
					pagesFlag(1),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.FeedList,
			},
			{
				Name:  "sync",
				Usage: "Walk a feed and store its events in the local archive",
				Flags: []cli.Flag{
					feedTypeFlag(),
					pagesFlag(0),
				},
				Action: r.FeedSync,
			},
			{
				Name:  "export",
				Usage: "Export feeds to files",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Feeds to export (repeatable, defaults to all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: export.output_dir or lbx_export_{timestamp})",
					},
					pagesFlag(0),
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent feed exports",
						Value: 3,
					},
					&cli.BoolFlag{
						Name:  "archive",
						Usage: "Also store exported events in the local archive",
					},
				},
				Action: r.FeedExport,
			},
			{
				Name:  "art",
				Usage: "Download cover art for the events of a feed",
				Flags: []cli.Flag{
					feedTypeFlag(),
					pagesFlag(1),
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Directory the images are written to",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent downloads (default: export.workers)",
					},
				},
				Action: r.FeedArt,
			},
			{
				Name:  "delete",
				Usage: "Delete a recommendation or pin from your feed",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "Event ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "event-type",
						Usage: "Event type: recording_recommendation or pin",
						Value: "recording_recommendation",
					},
				},
				Action: r.FeedDelete,
			},
			{
				Name:  "pin",
				Usage: "Pin a recording to your profile",
				Flags: append(recordingFlags(),
					&cli.StringFlag{
						Name:  "blurb",
						Usage: "Optional note shown with the pin",
					},
				),
				Action: r.FeedPin,
			},
			{
				Name:  "recommend",
				Usage: "Recommend a recording to your followers or to specific users",
				Flags: append(recordingFlags(),
					&cli.StringSliceFlag{
						Name:  "to",
						Usage: "Send a personal recommendation to these users (repeatable)",
					},
					&cli.StringFlag{
						Name:  "blurb",
						Usage: "Note for personal recommendations",
					},
				),
				Action: r.FeedRecommend,
			},
			{
				Name:  "review",
				Usage: "Review a recording on CritiqueBrainz",
				Flags: append(recordingFlags(),
					&cli.StringFlag{
						Name:     "text",
						Usage:    "Review text",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "rating",
						Usage:    "Rating from 1 to 5",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "entity-type",
						Usage: "Reviewed entity: recording, release_group or artist",
						Value: "recording",
					},
					&cli.StringFlag{
						Name:  "entity-id",
						Usage: "MBID of the reviewed entity (default: --mbid)",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Review language",
						Value: "en",
					},
				),
				Action: r.FeedReview,
			},
		},
	}
}

// playlistCommand handles ListenBrainz playlists
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "ListenBrainz playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "mbid",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistShow,
			},
		},
	}
}

// syndicationCommand reads the public events feed without a token
func syndicationCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "syndication",
		Aliases: []string{"atom"},
		Usage:   "Read a user's public events feed (no token needed)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "username",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of items to print",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Syndication,
	}
}

// serveCommand exposes a feed over a local HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a feed over a local JSON API",
		Flags: []cli.Flag{
			feedTypeFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "archive",
				Usage: "Remove deleted events from the local archive",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive feed browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse feeds interactively",
		Flags: []cli.Flag{
			feedTypeFlag(),
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Playlist MBID opened with the l key",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the TUI is running",
				Value: "./tmp/lbx-tui.log",
			},
		},
		Action: r.TUI,
	}
}
