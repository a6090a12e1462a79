package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcollage/internal/server"
	"github.com/matzehuels/gridcollage/pkg/blob"
	"github.com/matzehuels/gridcollage/pkg/session"
	"github.com/matzehuels/gridcollage/pkg/studio"
)

// serveCommand creates the command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noSweep bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collage editing HTTP API",
		Long: `Run the HTTP API backed by the stores configured in the [storage] section.

Uploads are kept in Badger (default) or an S3-compatible MinIO bucket.
Sessions are kept in memory (default), on disk, in Redis, or in MongoDB.
Expired sessions are swept on the [cleanup] schedule.

Every storage setting can be overridden with GRIDCOLLAGE_* environment
variables, which are also read from a .env file in the working directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), c.Config.Cleanup.Enabled && !noSweep)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not delete expired sessions")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, sweep bool) error {
	logger := loggerFromContext(ctx)
	cfg := c.Config

	blobs, err := c.openBlobs(ctx)
	if err != nil {
		return err
	}
	defer blobs.Close()

	sessions, err := c.openSessions(ctx)
	if err != nil {
		return err
	}
	defer sessions.Close()

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	svc, err := studio.New(studio.Config{
		Sessions:      sessions,
		Blobs:         blobs,
		Runner:        runner,
		TTL:           cfg.Server.SessionTTL,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		MaxImages:     cfg.Server.MaxImages,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if sweep {
		sw, err := studio.NewSweeper(svc, cfg.Cleanup.Schedule)
		if err != nil {
			return err
		}
		sw.Start()
		defer func() { <-sw.Stop().Done() }()
	}

	printSuccess("Serving on %s", StyleHighlight.Render(cfg.Server.Addr))
	printKeyValue("blobs", cfg.Storage.Blobs)
	printKeyValue("sessions", cfg.Storage.Sessions)
	printKeyValue("cache", cfg.Cache.Backend)
	printKeyValue("session ttl", cfg.Server.SessionTTL.String())
	if sweep {
		printKeyValue("sweep", cfg.Cleanup.Schedule)
	}

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		Studio:      svc,
		Logger:      logger,
		MaxBodySize: cfg.Server.MaxUploadSize + 1<<20,
	})
	return srv.ListenAndServe(ctx)
}

// openBlobs opens the configured blob store.
func (c *CLI) openBlobs(ctx context.Context) (blob.Store, error) {
	st := c.Config.Storage
	if st.Blobs == blobMinIO {
		return blob.NewMinIO(ctx, st.MinIO)
	}
	dir := st.BadgerDir
	if dir == "" {
		data, err := dataDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(data, "blobs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return blob.OpenBadger(dir)
}

// openSessions opens the configured session store.
func (c *CLI) openSessions(ctx context.Context) (session.Store, error) {
	st := c.Config.Storage
	switch st.Sessions {
	case sessionFile:
		return session.NewFileStore(st.SessionDir)
	case sessionRedis:
		return session.NewRedisStore(ctx, st.Redis)
	case sessionMongo:
		return session.NewMongoStore(ctx, st.Mongo)
	default:
		return session.NewMemoryStore(), nil
	}
}

// dataDir returns the data directory using XDG standard (~/.local/share/gridcollage/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// configCommand prints the effective configuration.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeConfig(os.Stdout, redact(c.Config))
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the default config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.configPath != "" {
				fmt.Println(c.configPath)
				return nil
			}
			dir, err := configDir()
			if err != nil {
				return err
			}
			fmt.Println(filepath.Join(dir, "config.toml"))
			return nil
		},
	})
	return cmd
}

// redact returns a copy of cfg with secrets masked.
func redact(cfg *Config) *Config {
	out := *cfg
	mask := func(s *string) {
		if *s != "" {
			*s = "***"
		}
	}
	mask(&out.Storage.MinIO.SecretKey)
	mask(&out.Storage.Redis.Password)
	mask(&out.Storage.Mongo.URI)
	mask(&out.Cache.RedisPassword)
	return &out
}
