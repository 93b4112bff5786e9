package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/radiosync/internal/formatter"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync reconciles the selected programs and prints a report. Any Failed program makes the command fail after every
// program has run.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireConfig(); err != nil {
		return err
	}

	programs, err := r.config.SelectPrograms(cmd.Args().Slice())
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	opts := tasks.SyncOpts{DryRun: cmd.Bool("dry-run"), Force: cmd.Bool("force")}
	r.logger.Info("starting sync", "programs", len(programs), "dry_run", opts.DryRun, "force", opts.Force)

	progress, stop := r.progress()
	results := engine.SyncAll(ctx, programs, opts, progress)
	stop()

	switch {
	case cmd.Bool("json"):
		err = r.writeJSON(results, cmd.Bool("pretty"))
	case cmd.Bool("markdown"):
		err = r.render(formatter.SyncReportToMarkdown(results))
	default:
		err = r.render(formatter.SyncReportToText(results, r.palette))
	}
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sync interrupted after %d of %d programs: %w", len(results), len(programs), err)
	}
	if failed := tasks.Failed(results); failed > 0 {
		return syncFailed(failed, len(results))
	}
	return nil
}

// Aggregate merges the selected programs' playlists into the target playlist.
func (r *Runner) Aggregate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireConfig(); err != nil {
		return err
	}

	programs, err := r.config.SelectPrograms(cmd.Args().Slice())
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	target := tasks.AggregateTarget{
		ID:          cmd.String("target"),
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
	}

	progress, stop := r.progress()
	result, err := engine.Aggregate(ctx, programs, target, tasks.SyncOpts{DryRun: cmd.Bool("dry-run")}, progress)
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.render(formatter.AggregateToText(result, r.palette))
}

// Programs lists the configured programs.
func (r *Runner) Programs(ctx context.Context, cmd *cli.Command) error {
	programs, err := r.config.SelectPrograms(nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(programs, true)
	}
	if len(programs) == 0 {
		return r.writePlain("No programs configured in %s\n", r.configPath)
	}
	return r.render(formatter.ProgramsToText(programs, r.palette))
}

func syncFailed(failed, total int) error {
	return fmt.Errorf("%w: %d of %d programs failed", shared.ErrSyncFailed, failed, total)
}

func (r *Runner) render(data []byte, err error) error {
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}
