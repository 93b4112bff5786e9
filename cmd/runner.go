package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/formatter"
	"github.com/desertthunder/radiosync/internal/repositories"
	"github.com/desertthunder/radiosync/internal/resolver"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The catalog client and the local journal are created lazily so commands that need neither (setup, programs) run
// without credentials.
type Runner struct {
	config      *shared.Config
	configPath  string
	credentials *shared.Credentials
	catalog     services.Catalog
	spotify     *services.SpotifyService
	db          *sql.DB
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	palette     *formatter.Palette
	now         func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog // Skips credential loading when set
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Palette    *formatter.Palette
	Now        func() time.Time
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
		now:        opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, aggregateCommand, programsCommand, playlistCommand, historyCommand, cacheCommand, authCommand,
		setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file named by --config, overlays the environment and applies --verbose. A missing
// config file leaves the embedded defaults in place without any programs; commands that need programs check for that.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	switch {
	case err == nil:
		r.config = config
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", path)
		r.config.Programs = nil
	default:
		return ctx, err
	}
	r.configPath = path

	if err := r.config.ApplyEnv(cmd.String("env")); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// close releases the journal after a command finishes.
func (r *Runner) close(context.Context, *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// requireConfig reports configuration errors that make syncing impossible.
func (r *Runner) requireConfig() error {
	if len(r.config.Programs) == 0 {
		return fmt.Errorf("%w: no programs configured in %s, run `radiosync setup`", shared.ErrMissingConfig, r.configPath)
	}
	return r.config.Validate()
}

// catalogService returns the injected catalog or builds the Spotify client from the credential bundle.
func (r *Runner) catalogService() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	creds, err := shared.LoadCredentials(r.config.Credentials.Path)
	if err != nil {
		return nil, err
	}
	r.credentials = creds

	cfg := r.config.Catalog
	svc, err := services.NewSpotifyService(services.SpotifyOpts{
		Credentials:    creds,
		RedirectURI:    r.config.Credentials.RedirectURI,
		HTTPClient:     r.httpClient,
		Timeout:        cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		RateLimit:      cfg.RateLimit,
		BatchSize:      cfg.BatchSize,
		Logger:         r.logger,
		OnTokenRefresh: r.tokenRefreshed,
	})
	if err != nil {
		return nil, err
	}

	r.spotify = svc
	r.catalog = svc
	return svc, nil
}

// owner returns the configured catalog user, asking the provider for the authenticated user when it is unset.
func (r *Runner) owner(ctx context.Context) (string, error) {
	if r.config.Catalog.UserID != "" || r.spotify == nil {
		return r.config.Catalog.UserID, nil
	}

	user, err := r.spotify.UserProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to look up catalog user: %w", err)
	}
	r.logger.Info("using authenticated user as playlist owner", "user", user.ID)
	r.config.Catalog.UserID = user.ID
	return user.ID, nil
}

// journal opens the local sqlite journal. It is optional: a disabled or broken journal only logs.
func (r *Runner) journal() *sql.DB {
	if r.db != nil {
		return r.db
	}
	if r.config.Database.Path == "" {
		return nil
	}

	db, err := shared.OpenJournal(r.config.Database)
	if err != nil {
		r.logger.Warn("run journal unavailable", "path", r.config.Database.Path, "error", err)
		return nil
	}
	r.db = db
	return db
}

// engine wires the catalog, resolver settings and journal into a [tasks.Engine].
func (r *Runner) engine(ctx context.Context) (*tasks.Engine, error) {
	catalog, err := r.catalogService()
	if err != nil {
		return nil, err
	}

	cutoff, err := r.config.CutoffDate()
	if err != nil {
		return nil, err
	}

	strategy, err := resolver.StrategyFor(r.config.Resolver.Strategy, r.config.Resolver.MinScore)
	if err != nil {
		return nil, err
	}

	owner, err := r.owner(ctx)
	if err != nil {
		return nil, err
	}

	opts := tasks.EngineOpts{
		Catalog:  catalog,
		Strategy: strategy,
		Logger:   r.logger,
		Owner:    owner,
		Cutoff:   cutoff,
		Now:      r.now,
	}
	if db := r.journal(); db != nil {
		opts.Recorder = repositories.NewSyncRunRepository(db)
		if r.config.Resolver.Cache {
			opts.Cache = repositories.NewResolutionRepository(db)
		}
	}
	return tasks.NewEngine(opts)
}

// tokenRefreshed persists refreshed tokens; failures are logged so a sync is never aborted by a read-only disk.
func (r *Runner) tokenRefreshed(token *oauth2.Token) {
	if err := r.saveTokens(token); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.config.Credentials.Path, "expiry", token.Expiry)
}

// saveTokens merges token into the credential bundle and writes it to credentials.path.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: token cannot be nil", shared.ErrInvalidInput)
	}
	if r.credentials == nil {
		return fmt.Errorf("%w: no credential bundle loaded", shared.ErrMissingCredentials)
	}

	r.credentials.Update(token)
	if r.config.Credentials.Path == "" {
		return nil
	}
	if err := shared.SaveCredentials(r.config.Credentials.Path, r.credentials); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// progress consumes engine updates and logs them until the returned stop function is called.
func (r *Runner) progress() (chan<- tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range ch {
			logger := r.logger
			if update.Program != "" {
				logger = logger.With("program", update.Program)
			}
			switch update.Phase {
			case tasks.Finished, tasks.AggregatePlaylists:
				logger.Info(update.Message, "phase", update.Phase)
			default:
				logger.Debug(update.Message, "phase", update.Phase)
			}
		}
	}()

	return ch, func() {
		close(ch)
		<-done
	}
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

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
