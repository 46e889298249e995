// Package config loads the annotator configuration from flags, environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"invoice-annotator/internal/hittest"
	"invoice-annotator/internal/logging"
	"invoice-annotator/internal/viewport"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. INVOICE_ANNOTATOR_ZOOM.
	EnvPrefix = "INVOICE_ANNOTATOR"

	DefaultLogLevel = "info"
	DefaultEnvFile  = ".env"
)

// ErrVersionRequested is returned when --version was given.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the annotator.
type Config struct {
	// Extraction JSON produced by the backend.
	ExtractionPath string
	// Page image used when the extraction carries no preview.
	ImagePath string

	Zoom int
	// ZoomExplicit is set when the zoom came from a flag or the environment
	// rather than the default, so it wins over a remembered zoom.
	ZoomExplicit bool

	SettleDelay time.Duration
	HitPadding  float64
	HitRadius   float64

	Watch    bool
	LogLevel string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Zoom:        viewport.DefaultZoom,
		SettleDelay: viewport.DefaultSettleDelay,
		HitPadding:  hittest.DefaultPadding,
		HitRadius:   hittest.DefaultRadius,
		Watch:       true,
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags parses the process arguments.
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[0], os.Args[1:])
}

// Load builds a configuration from args, INVOICE_ANNOTATOR_* environment
// variables and a .env file in the working directory, in that precedence.
func Load(name string, args []string) (*Config, error) {
	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	v := viper.New()
	setupViperEnvironment(v, cfg)

	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	defineCommandLineFlags(flags, cfg)
	flags.Usage = usage(flags, name)
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if ok, _ := flags.GetBool("version"); ok {
		return nil, ErrVersionRequested
	}

	populateConfigFromViper(v, cfg)
	_, zoomEnv := os.LookupEnv(EnvPrefix + "_ZOOM")
	cfg.ZoomExplicit = flags.Changed("zoom") || zoomEnv
	if cfg.ExtractionPath == "" && flags.NArg() > 0 {
		cfg.ExtractionPath = flags.Arg(0)
	}
	cfg.ExtractionPath = absPath(cfg.ExtractionPath)
	cfg.ImagePath = absPath(cfg.ImagePath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("extraction", cfg.ExtractionPath)
	v.SetDefault("image", cfg.ImagePath)
	v.SetDefault("zoom", cfg.Zoom)
	v.SetDefault("settle-delay", cfg.SettleDelay)
	v.SetDefault("hit-padding", cfg.HitPadding)
	v.SetDefault("hit-radius", cfg.HitRadius)
	v.SetDefault("watch", cfg.Watch)
	v.SetDefault("log-level", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringP("extraction", "e", cfg.ExtractionPath, "Extraction JSON file to review")
	flags.String("image", cfg.ImagePath, "Page image to use when the extraction has no preview")
	flags.IntP("zoom", "z", cfg.Zoom, "Initial zoom percent (50-200)")
	flags.Duration("settle-delay", cfg.SettleDelay, "Delay before geometry is re-measured after an image load")
	flags.Float64("hit-padding", cfg.HitPadding, "Tolerance around token boxes in displayed pixels")
	flags.Float64("hit-radius", cfg.HitRadius, "Nearest-token fallback radius at 100% zoom")
	flags.Bool("watch", cfg.Watch, "Reload the extraction file when it changes")
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.BoolP("version", "v", false, "Print version information and exit")
}

func usage(flags *pflag.FlagSet, name string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", name)
		fmt.Fprintf(os.Stderr, "\nInvoice Annotator - review and correct extracted invoice fields on the page image\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_EXTRACTION    Extraction JSON file\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_ZOOM          Initial zoom percent\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_WATCH         Reload on change\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LOG_LEVEL     Log level\n", EnvPrefix)
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.ExtractionPath = v.GetString("extraction")
	cfg.ImagePath = v.GetString("image")
	cfg.Zoom = viewport.ClampZoom(v.GetInt("zoom"))
	cfg.SettleDelay = v.GetDuration("settle-delay")
	cfg.HitPadding = v.GetFloat64("hit-padding")
	cfg.HitRadius = v.GetFloat64("hit-radius")
	cfg.Watch = v.GetBool("watch")
	cfg.LogLevel = strings.ToLower(v.GetString("log-level"))
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HitPadding < 0 {
		return fmt.Errorf("hit padding must not be negative, got %g", c.HitPadding)
	}
	if c.HitRadius < 0 {
		return fmt.Errorf("hit radius must not be negative, got %g", c.HitRadius)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay must not be negative, got %s", c.SettleDelay)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// HitOptions returns the hit tester tolerances.
func (c *Config) HitOptions() hittest.Options {
	return hittest.Options{Padding: c.HitPadding, Radius: c.HitRadius}
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Extraction: %s, Image: %s, Zoom: %d, SettleDelay: %s, HitPadding: %g, HitRadius: %g, Watch: %t, LogLevel: %s}",
		c.ExtractionPath, c.ImagePath, c.Zoom, c.SettleDelay, c.HitPadding, c.HitRadius, c.Watch, c.LogLevel)
}
