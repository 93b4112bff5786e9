package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded example when it is missing, then initializes the run journal.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := config.ApplyEnv(cmd.String("env")); err != nil {
			return err
		}
		r.config = config
		r.writePlain("✓ Created %s\n", configPath)
	} else {
		r.writePlain("✓ Using existing %s\n", configPath)
	}

	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.config.Database.Path == "" {
		r.writePlain("Run journal disabled (database.path is empty)\n")
	} else {
		r.logger.Info("initializing database", "path", r.config.Database.Path)
		db := r.journal()
		if db == nil {
			return fmt.Errorf("failed to initialize database at %s", r.config.Database.Path)
		}
		version, err := shared.CurrentVersion(db)
		if err != nil {
			return err
		}
		r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
	}

	r.writePlain("\nNext steps:\n")
	r.writePlain("1. Run 'radiosync auth login --client-id ... --client-secret ...'\n")
	r.writePlain("2. Run 'radiosync sync --dry-run' to preview changes\n")
	return nil
}
