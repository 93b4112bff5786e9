package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/radiosync/internal/formatter"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistClear removes every track from the playlist given by --id or --name.
func (r *Runner) PlaylistClear(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	playlistID, err := r.playlistID(ctx, cmd)
	if err != nil {
		return err
	}

	progress, stop := r.progress()
	result, err := engine.Clear(ctx, playlistID, cmd.Bool("dry-run"), progress)
	stop()
	if err != nil {
		return err
	}
	return r.render(formatter.ClearToText(result, r.palette))
}

// PlaylistTracks prints the track URIs of the playlist given by --id or --name.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalogService()
	if err != nil {
		return err
	}

	playlistID, err := r.playlistID(ctx, cmd)
	if err != nil {
		return err
	}

	uris, err := catalog.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(uris, true)
	}
	for _, uri := range uris {
		if err := r.writePlain("%s\n", uri); err != nil {
			return err
		}
	}
	return nil
}

// playlistID resolves --id, or looks --name up among the owner's playlists.
func (r *Runner) playlistID(ctx context.Context, cmd *cli.Command) (string, error) {
	id, name := cmd.String("id"), cmd.String("name")
	switch {
	case id != "" && name != "":
		return "", fmt.Errorf("%w: cannot specify both --id and --name", shared.ErrInvalidArgument)
	case id != "":
		return id, nil
	case name == "":
		return "", fmt.Errorf("%w: either --id or --name must be provided", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogService()
	if err != nil {
		return "", err
	}
	owner, err := r.owner(ctx)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", fmt.Errorf("%w: catalog.user_id is required to look playlists up by name", shared.ErrMissingConfig)
	}

	playlist, err := catalog.FindPlaylist(ctx, owner, name)
	if err != nil {
		return "", err
	}
	r.logger.Debug("resolved playlist", "name", name, "id", playlist.ID)
	return playlist.ID, nil
}
