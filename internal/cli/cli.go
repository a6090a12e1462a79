// Package cli implements the gridcollage command-line interface.
//
// The CLI drives the same pipeline as the HTTP API: layouts come from the
// template library (or a uniform grid), are auto-filled from a directory of
// images, and are composited to PNG, JPEG, or WebP. Layout and artifact
// results are cached on disk under the XDG cache directory.
//
// # Commands
//
//   - templates: list the template catalog with ASCII previews
//   - layout: build and edit a layout file
//   - render: composite a layout file against an image directory
//   - collage: template, fill, and render in one step
//   - edit: interactive layout editor
//   - serve: run the HTTP API
//   - cache: inspect and clear the local cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcollage/pkg/buildinfo"
	"github.com/matzehuels/gridcollage/pkg/cache"
	"github.com/matzehuels/gridcollage/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gridcollage"

	// envPrefix prefixes every environment override.
	envPrefix = "GRIDCOLLAGE_"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config *Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Gridcollage lays out and renders photo collages",
		Long: `Gridcollage arranges images on a grid of cells that can span several rows
and columns, fills the grid from a template library, and renders the result
as PNG, JPEG, or WebP. It runs as a CLI or as an HTTP editing service.`,
		Version:           buildinfo.Get().Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/gridcollage/config.toml)")

	root.AddCommand(c.templatesCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.collageCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup applies --verbose, loads .env and the config file, and attaches the
// logger to the command context.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	path, explicit := c.configPath, c.configPath != ""
	if !explicit {
		if dir, err := configDir(); err == nil {
			path = filepath.Join(dir, "config.toml")
		}
	}
	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}
	applyEnv(cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", path)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if _, shared := cc.(*cache.RedisCache); shared {
		keyer = cache.NewScopedKeyer(nil, cache.RedisScope)
	}
	return pipeline.NewRunner(cc, keyer, c.Logger), nil
}

// newCache opens the configured cache. For the file backend a missing home
// directory falls back to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config.Cache
	switch {
	case noCache || cfg.Backend == cacheNone:
		return cache.NewNullCache(), nil
	case cfg.Backend == cacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	dir, err := c.localCacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gridcollage/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/gridcollage/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// applyOutputConfig fills render options the user did not set on the command
// line from the [output] config section.
func (c *CLI) applyOutputConfig(cmd *cobra.Command, opts *pipeline.Options, formats *string) {
	out := c.Config.Output
	flags := cmd.Flags()
	if !flags.Changed("template") && flags.Lookup("template") != nil && out.Template != "" {
		opts.Template = out.Template
	}
	if !flags.Changed("width") {
		opts.Width = out.Width
	}
	if !flags.Changed("height") {
		opts.Height = out.Height
	}
	if !flags.Changed("gap") {
		opts.Gap = out.Gap
	}
	if !flags.Changed("background") {
		opts.Background = out.Background
	}
	if !flags.Changed("quality") {
		opts.Quality = out.Quality
	}
	if !flags.Changed("format") {
		*formats = out.Format
	}
}

// addRenderFlags registers the canvas flags shared by render and collage.
func addRenderFlags(cmd *cobra.Command, opts *pipeline.Options, formats *string) {
	cmd.Flags().StringVarP(formats, "format", "f", pipeline.DefaultFormat, "output format(s): png, jpeg, webp (comma-separated)")
	cmd.Flags().IntVar(&opts.Width, "width", pipeline.DefaultWidth, "canvas width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", pipeline.DefaultHeight, "canvas height in pixels")
	cmd.Flags().IntVar(&opts.Gap, "gap", pipeline.DefaultGap, "gutter between cells in pixels")
	cmd.Flags().StringVar(&opts.Background, "background", pipeline.DefaultBackground, "background colour (#rgb or #rrggbb)")
	cmd.Flags().IntVar(&opts.Quality, "quality", pipeline.DefaultQuality, "quality for jpeg and webp (1-100)")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
