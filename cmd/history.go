package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/radiosync/internal/formatter"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/repositories"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints journaled sync runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db := r.journal()
	if db == nil {
		return fmt.Errorf("%w: run journal is disabled (database.path is empty)", shared.ErrMissingConfig)
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if program := cmd.String("program"); program != "" {
		criteria["program"] = program
	}
	if state := cmd.String("state"); state != "" {
		switch models.SyncState(state) {
		case models.StateSynced, models.StateSkipped, models.StateFailed:
			criteria["state"] = state
		default:
			return fmt.Errorf("%w: unknown state %q", shared.ErrInvalidArgument, state)
		}
	}

	runs, err := repositories.NewSyncRunRepository(db).List(ctx, criteria)
	if err != nil {
		return err
	}

	var data []byte
	switch format := cmd.String("format"); format {
	case "json":
		data, err = shared.MarshalJSON(runs, true)
	case "csv":
		data, err = formatter.RunsToCSV(runs)
	case "text", "":
		data, err = formatter.RunsToText(runs, r.palette)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("history written", "path", path, "runs", len(runs))
		return nil
	}
	return r.writeBytes(data)
}
