// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// app builds the root command. --config and --verbose are global.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "radiosync",
		Usage:   "Mirror public radio playlists into Spotify playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("RADIOSYNC_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to an optional dotenv file",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.configure,
		After:    r.close,
		Commands: r.register(),
	}
}

// syncCommand reconciles program playlists with their latest episodes
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Sync program playlists with their latest aired episode",
		ArgsUsage: "[program...|all]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Compute changes without writing to Spotify",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Ignore the last-synced marker",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output results as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Output results as a Markdown table",
			},
		},
		Action: r.Sync,
	}
}

// aggregateCommand merges program playlists into one playlist
func aggregateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "aggregate",
		Usage:     "Merge program playlists into a combined playlist",
		ArgsUsage: "[program...|all]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Usage: "Combined playlist ID",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Combined playlist name (created when --target is not given)",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Combined playlist description",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Compute changes without writing to Spotify",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output result as JSON",
			},
		},
		Action: r.Aggregate,
	}
}

// programsCommand lists configured programs
func programsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "programs",
		Usage: "List configured programs",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output programs as JSON",
			},
		},
		Action: r.Programs,
	}
}

// playlistCommand handles direct playlist operations
func playlistCommand(r *Runner) *cli.Command {
	target := []cli.Flag{
		&cli.StringFlag{
			Name:  "id",
			Usage: "Playlist ID",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Playlist name owned by the configured user",
		},
	}

	return &cli.Command{
		Name:  "playlist",
		Usage: "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Remove every track from a playlist",
				Flags: append(target, &cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Usage:   "Count tracks without removing them",
				}),
				Action: r.PlaylistClear,
			},
			{
				Name:  "tracks",
				Usage: "Print the track URIs of a playlist",
				Flags: append(target, &cli.BoolFlag{
					Name:  "json",
					Usage: "Output URIs as JSON",
				}),
				Action: r.PlaylistTracks,
			},
		},
	}
}

// historyCommand prints the local run journal
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded sync runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "program",
				Usage: "Only show runs of this program",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "Only show runs that ended in this state (synced, skipped, failed)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, json or csv",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// cacheCommand manages the local resolution cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the track resolution cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show how many resolutions are cached",
				Action: r.CacheStats,
			},
			{
				Name:      "forget",
				Usage:     "Drop the cached resolution of one track",
				ArgsUsage: "<artist> <title>",
				Action:    r.CacheForget,
			},
			{
				Name:   "clear",
				Usage:  "Drop every cached resolution",
				Action: r.CacheClear,
			},
		},
	}
}

// authCommand handles Spotify authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify and write the credential bundle",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "client-id",
						Usage:   "Spotify application client ID",
						Sources: cli.EnvVars("RADIOSYNC_CLIENT_ID", "SPOTIFY_CLIENT_ID"),
					},
					&cli.StringFlag{
						Name:    "client-secret",
						Usage:   "Spotify application client secret",
						Sources: cli.EnvVars("RADIOSYNC_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET"),
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: loginTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the authorized Spotify user",
				Action: r.AuthStatus,
			},
		},
	}
}

// setupCommand creates the config file and the local journal.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the example and initialize the run journal",
		Action: r.Setup,
	}
}
