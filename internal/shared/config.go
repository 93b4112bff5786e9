package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// DateLayout is the day-precision layout used for configured dates and sync markers.
const DateLayout = "2006-01-02"

// Environment variables that override file configuration.
const (
	EnvUserID      = "RADIOSYNC_SPOTIFY_USER_ID"
	EnvCredentials = "RADIOSYNC_CREDENTIALS"
	EnvDatabase    = "RADIOSYNC_DATABASE"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig        `toml:"credentials"`
	Catalog     CatalogConfig            `toml:"catalog"`
	Resolver    ResolverConfig           `toml:"resolver"`
	Sync        SyncConfig               `toml:"sync"`
	Database    DatabaseConfig           `toml:"database"`
	Server      ServerConfig             `toml:"server"`
	Programs    map[string]ProgramConfig `toml:"programs"`
}

// CredentialsConfig points at the JSON credential bundle.
type CredentialsConfig struct {
	Path        string `toml:"path"`
	RedirectURI string `toml:"redirect_uri"`
}

// CatalogConfig tunes the Spotify client.
type CatalogConfig struct {
	UserID       string        `toml:"user_id"`
	BatchSize    int           `toml:"batch_size"`
	Timeout      time.Duration `toml:"timeout"`
	MaxRetries   int           `toml:"max_retries"`
	RetryBackoff time.Duration `toml:"retry_backoff"`
	RateLimit    float64       `toml:"rate_limit"`
}

// ResolverConfig selects the track matching strategy.
type ResolverConfig struct {
	Strategy string  `toml:"strategy"`
	MinScore float64 `toml:"min_score"`
	Cache    bool    `toml:"cache"`
}

// SyncConfig holds reconciliation settings shared by all programs.
type SyncConfig struct {
	Cutoff string `toml:"cutoff"`
}

// DatabaseConfig contains database connection settings. An empty path disables the local journal.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ProgramConfig is the static definition of one external program mapped to one managed playlist.
type ProgramConfig struct {
	Slug        string       `toml:"-"`
	Name        string       `toml:"name"`
	Description string       `toml:"description"`
	SkipPattern string       `toml:"skip_pattern"`
	StartDate   string       `toml:"start_date"`
	Interval    string       `toml:"interval"` // daily, weekly or monthly; bounds how far back the walk goes
	Source      SourceConfig `toml:"source"`
}

// SourceConfig selects and parameterizes the episode source for a program.
type SourceConfig struct {
	Kind       string `toml:"kind"`
	Widget     string `toml:"widget"`
	ProgramID  string `toml:"program_id"`
	PlaylistID string `toml:"playlist_id"`
	URL        string `toml:"url"`
	BaseURL    string `toml:"base_url"`
}

// intervalWindows is how many days back an episode of a program airing on each interval is still looked for.
var intervalWindows = map[string]int{
	"daily":   7,
	"weekly":  21,
	"monthly": 62,
}

// Source kinds understood by the sources package.
const (
	SourceComposer = "composer"
	SourceBBC      = "bbc"
)

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults from the embedded example config, except programs,
// which come only from the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Programs = nil
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}
	config.normalize()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.normalize()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes the configuration as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays values from an optional dotenv file and then the process environment.
//
// A missing dotenv file is not an error.
func (c *Config) ApplyEnv(dotenvPath string) error {
	values := map[string]string{}
	if dotenvPath != "" {
		read, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			values = read
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return values[key]
	}

	if v := lookup(EnvUserID); v != "" {
		c.Catalog.UserID = v
	}
	if v := lookup(EnvCredentials); v != "" {
		c.Credentials.Path = v
	}
	if v, ok := os.LookupEnv(EnvDatabase); ok {
		c.Database.Path = v
	} else if v, ok := values[EnvDatabase]; ok {
		c.Database.Path = v
	}
	return nil
}

// Validate checks every program definition and the global settings.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.CutoffDate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Resolver.Strategy {
	case "", "first", "score":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown resolver strategy %q", ErrInvalidConfig, c.Resolver.Strategy))
	}
	if c.Catalog.BatchSize < 0 || c.Catalog.BatchSize > 100 {
		errs = append(errs, fmt.Errorf("%w: catalog.batch_size must be between 1 and 100", ErrInvalidConfig))
	}
	for _, slug := range c.ProgramSlugs() {
		p := c.Programs[slug]
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CutoffDate parses sync.cutoff; an empty value means no cutoff (zero time).
func (c *Config) CutoffDate() (time.Time, error) {
	if c.Sync.Cutoff == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(DateLayout, c.Sync.Cutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: sync.cutoff %q: %v", ErrInvalidConfig, c.Sync.Cutoff, err)
	}
	return d, nil
}

// ProgramSlugs returns the configured program slugs in sorted order.
func (c *Config) ProgramSlugs() []string {
	slugs := make([]string, 0, len(c.Programs))
	for slug := range c.Programs {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)
	return slugs
}

// Program returns the program with the given slug.
func (c *Config) Program(slug string) (ProgramConfig, error) {
	p, ok := c.Programs[slug]
	if !ok {
		return ProgramConfig{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProgram, slug, strings.Join(c.ProgramSlugs(), ", "))
	}
	return p, nil
}

// SelectPrograms resolves CLI program selectors. "all" or no selector selects every program.
// Duplicates are collapsed and the order of first appearance is kept.
func (c *Config) SelectPrograms(selectors []string) ([]ProgramConfig, error) {
	if len(selectors) == 0 || slices.Contains(selectors, "all") {
		selectors = c.ProgramSlugs()
	}

	seen := make(map[string]bool, len(selectors))
	programs := make([]ProgramConfig, 0, len(selectors))
	for _, slug := range selectors {
		if seen[slug] {
			continue
		}
		seen[slug] = true
		p, err := c.Program(slug)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, nil
}

func (c *Config) normalize() {
	for slug, p := range c.Programs {
		p.Slug = slug
		if p.Name == "" {
			p.Name = slug
		}
		c.Programs[slug] = p
	}
}

// Validate checks that the skip pattern compiles, the start date parses and the source is complete.
func (p ProgramConfig) Validate() error {
	if _, err := p.SkipRegexp(); err != nil {
		return err
	}
	if _, _, err := p.Start(); err != nil {
		return err
	}
	if _, err := p.Window(); err != nil {
		return err
	}

	switch p.Source.Kind {
	case SourceComposer:
		if p.Source.Widget == "" || p.Source.ProgramID == "" {
			return fmt.Errorf("%w: program %q: composer source requires widget and program_id", ErrInvalidConfig, p.Slug)
		}
	case SourceBBC:
		if p.Source.URL == "" {
			return fmt.Errorf("%w: program %q: bbc source requires url", ErrInvalidConfig, p.Slug)
		}
	default:
		return fmt.Errorf("%w: program %q: unknown source kind %q", ErrInvalidConfig, p.Slug, p.Source.Kind)
	}
	return nil
}

// SkipRegexp compiles the program's exclusion pattern. A nil regexp means nothing is excluded.
func (p ProgramConfig) SkipRegexp() (*regexp.Regexp, error) {
	if p.SkipPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(p.SkipPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: program %q: skip_pattern: %v", ErrInvalidConfig, p.Slug, err)
	}
	return re, nil
}

// Window returns the number of days the walk for an episode may reach back, derived from the broadcast interval.
// An empty interval returns 0: no bound beyond the cutoff.
func (p ProgramConfig) Window() (int, error) {
	if p.Interval == "" {
		return 0, nil
	}
	days, ok := intervalWindows[p.Interval]
	if !ok {
		return 0, fmt.Errorf("%w: program %q: unknown interval %q (want daily, weekly or monthly)", ErrInvalidConfig, p.Slug, p.Interval)
	}
	return days, nil
}

// Start parses the optional explicit start date.
func (p ProgramConfig) Start() (time.Time, bool, error) {
	if p.StartDate == "" {
		return time.Time{}, false, nil
	}
	d, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: program %q: start_date %q: %v", ErrInvalidConfig, p.Slug, p.StartDate, err)
	}
	return d, true, nil
}
