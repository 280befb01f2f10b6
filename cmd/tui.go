package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lbx/internal/shared"
	"github.com/desertthunder/lbx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive feed browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
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

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.newPaginator(feedType), r.playlists, ui.Session{
		Username:     user,
		Token:        token,
		PlaylistMBID: cmd.String("playlist"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
