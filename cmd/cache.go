package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/repositories"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) resolutions() (*repositories.ResolutionRepository, error) {
	db := r.journal()
	if db == nil {
		return nil, fmt.Errorf("%w: resolution cache is disabled (database.path is empty)", shared.ErrMissingConfig)
	}
	return repositories.NewResolutionRepository(db), nil
}

// CacheStats prints the number of cached resolutions.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.resolutions()
	if err != nil {
		return err
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	state := "enabled"
	if !r.config.Resolver.Cache {
		state = "disabled"
	}
	return r.writePlain("%d cached resolutions in %s (cache %s)\n", count, r.config.Database.Path, state)
}

// CacheForget drops the cached resolution for one artist and title so the next sync searches again.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 2 {
		return fmt.Errorf("%w: expected <artist> <title>", shared.ErrMissingArgument)
	}

	repo, err := r.resolutions()
	if err != nil {
		return err
	}

	track := models.Track{Artist: args[0], Name: args[1]}
	key := track.Key()
	if err := repo.Forget(ctx, key); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return r.writePlain("No cached resolution for %s - %s\n", track.Artist, track.Name)
		}
		return err
	}

	r.logger.Debug("forgot resolution", "key", key)
	return r.writePlain("✓ Forgot %s\n", strings.ReplaceAll(key, "|", " by "))
}

// CacheClear drops every cached resolution.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.resolutions()
	if err != nil {
		return err
	}

	n, err := repo.Clear(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Cleared %d cached resolutions\n", n)
}
