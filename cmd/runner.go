package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lbx/internal/models"
	"github.com/desertthunder/lbx/internal/repositories"
	"github.com/desertthunder/lbx/internal/services"
	"github.com/desertthunder/lbx/internal/shared"
	"github.com/desertthunder/lbx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	feeds       services.FeedRepository
	playlists   services.PlaylistRepository
	syndication *services.SyndicationService
	logger      *log.Logger
	output      io.Writer
	engine      *tasks.FeedEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Feeds       services.FeedRepository
	Playlists   services.PlaylistRepository
	Syndication *services.SyndicationService
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		feeds:       opts.Feeds,
		playlists:   opts.Playlists,
		syndication: opts.Syndication,
		logger:      opts.Logger,
		output:      opts.Output,
		engine:      tasks.NewFeedEngine(opts.Feeds, opts.Logger),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, feedCommand, playlistCommand, syndicationCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "ListenBrainz username (overrides listenbrainz.username)",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "ListenBrainz user token (overrides listenbrainz.token)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
}

// before applies global flags to the loaded configuration.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if user := cmd.String("user"); user != "" {
		r.config.ListenBrainz.Username = user
	}
	if tok := cmd.String("token"); tok != "" {
		r.config.ListenBrainz.Token = tok
	}
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// SetLogger replaces the logger used by the runner and its engine.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.engine = tasks.NewFeedEngine(r.feeds, l)
}

// credentials returns the configured username and token.
//
// Read-only commands only need a username; writes also need a token.
func (r *Runner) credentials(needToken bool) (string, string, error) {
	user := r.config.ListenBrainz.Username
	token := r.config.ListenBrainz.Token

	if user == "" {
		return "", "", fmt.Errorf("%w: set listenbrainz.username, LBX_USERNAME or --user", shared.ErrMissingCredentials)
	}
	if needToken && token == "" {
		return "", "", fmt.Errorf("%w: set listenbrainz.token, LBX_TOKEN or --token", shared.ErrMissingCredentials)
	}

	r.logger.Debug("using credentials", "user", user, "token", shared.MaskToken(token))
	return user, token, nil
}

// openArchive opens the sqlite archive and returns it with a close func.
func (r *Runner) openArchive(ctx context.Context) (*repositories.Archive, func(), error) {
	db, err := shared.OpenArchive(ctx, r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return repositories.NewArchive(db), func() { db.Close() }, nil
}

func (r *Runner) pageSize() int {
	return r.config.ListenBrainz.PageSize
}

func parseFeedType(name string) (models.FeedType, error) {
	feedType, err := models.ParseFeedType(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return feedType, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// printProgress writes updates until progress is closed and then closes done.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		switch update.Phase {
		case tasks.FetchPage:
			r.writePlain("📥 %s\n", update.Message)
		case tasks.ArchiveEvents, tasks.ExportFeed, tasks.DownloadCoverArt:
			r.writePlain("   %s\n", update.Message)
		case tasks.WriteManifest:
			r.writePlain("\n📝 %s\n", update.Message)
		}
	}
}
