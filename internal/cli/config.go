package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/gridcollage/pkg/blob"
	"github.com/matzehuels/gridcollage/pkg/collage/templates"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
	"github.com/matzehuels/gridcollage/pkg/pipeline"
	"github.com/matzehuels/gridcollage/pkg/session"
	"github.com/matzehuels/gridcollage/pkg/studio"
)

// Backend names accepted in the [storage] and [cache] sections.
const (
	blobBadger = "badger"
	blobMinIO  = "minio"

	sessionMemory = "memory"
	sessionFile   = "file"
	sessionRedis  = "redis"
	sessionMongo  = "mongo"

	cacheFile  = "file"
	cacheRedis = "redis"
	cacheNone  = "none"
)

// Config is the gridcollage config file.
//
//	[output]
//	template = "featured"
//	width = 1600
//	format = "png,webp"
//
//	[storage]
//	sessions = "redis"
//	[storage.redis]
//	addr = "localhost:6379"
type Config struct {
	Output  OutputConfig  `toml:"output"`
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Cleanup CleanupConfig `toml:"cleanup"`
}

// OutputConfig holds render defaults for the CLI.
type OutputConfig struct {
	Template   string `toml:"template"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Gap        int    `toml:"gap"`
	Background string `toml:"background"`
	Format     string `toml:"format"`
	Quality    int    `toml:"quality"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr          string        `toml:"addr"`
	SessionTTL    time.Duration `toml:"session_ttl"`
	MaxUploadSize int64         `toml:"max_upload_size"`
	MaxImages     int           `toml:"max_images"`
}

// StorageConfig selects where uploads and sessions live.
type StorageConfig struct {
	Blobs     string           `toml:"blobs"`
	BadgerDir string           `toml:"badger_dir"`
	MinIO     blob.MinIOConfig `toml:"minio"`

	Sessions   string              `toml:"sessions"`
	SessionDir string              `toml:"session_dir"`
	Redis      session.RedisConfig `toml:"redis"`
	Mongo      session.MongoConfig `toml:"mongo"`
}

// CacheConfig selects the layout and artifact cache.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// CleanupConfig controls the expired-session sweeper.
type CleanupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
}

func defaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Template:   templates.Default,
			Width:      pipeline.DefaultWidth,
			Height:     pipeline.DefaultHeight,
			Gap:        pipeline.DefaultGap,
			Background: pipeline.DefaultBackground,
			Format:     pipeline.DefaultFormat,
			Quality:    pipeline.DefaultQuality,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			SessionTTL:    session.DefaultTTL,
			MaxUploadSize: studio.DefaultMaxUploadSize,
			MaxImages:     studio.DefaultMaxImages,
		},
		Storage: StorageConfig{
			Blobs:    blobBadger,
			Sessions: sessionMemory,
		},
		Cache: CacheConfig{
			Backend: cacheFile,
		},
		Cleanup: CleanupConfig{
			Enabled:  true,
			Schedule: studio.DefaultSweepSchedule,
		},
	}
}

// loadConfig decodes the TOML file at path over the defaults. A missing file
// is an error only when the path was given explicitly.
func loadConfig(path string, explicit bool) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// loadDotEnv loads path into the process environment if it exists.
// Variables already set take precedence.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides config values with GRIDCOLLAGE_* variables.
func applyEnv(cfg *Config, getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	str("ADDR", &cfg.Server.Addr)
	str("BLOB_STORE", &cfg.Storage.Blobs)
	str("BADGER_DIR", &cfg.Storage.BadgerDir)
	str("MINIO_ENDPOINT", &cfg.Storage.MinIO.Endpoint)
	str("MINIO_ACCESS_KEY", &cfg.Storage.MinIO.AccessKey)
	str("MINIO_SECRET_KEY", &cfg.Storage.MinIO.SecretKey)
	str("MINIO_BUCKET", &cfg.Storage.MinIO.Bucket)
	str("SESSION_STORE", &cfg.Storage.Sessions)
	str("SESSION_DIR", &cfg.Storage.SessionDir)
	str("MONGO_URI", &cfg.Storage.Mongo.URI)
	str("CACHE", &cfg.Cache.Backend)
	str("CACHE_DIR", &cfg.Cache.Dir)

	// One Redis serves both sessions and the cache unless configured apart.
	if v := getenv(envPrefix + "REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = v
		cfg.Cache.RedisAddr = v
	}
	if v := getenv(envPrefix + "REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
		cfg.Cache.RedisPassword = v
	}
	if v, err := strconv.ParseBool(getenv(envPrefix + "MINIO_USE_SSL")); err == nil {
		cfg.Storage.MinIO.UseSSL = v
	}
}

// Validate checks backend names and the output defaults.
func (c *Config) Validate() error {
	switch c.Storage.Blobs {
	case blobBadger, blobMinIO:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown blob store %q (want badger or minio)", c.Storage.Blobs)
	}
	switch c.Storage.Sessions {
	case sessionMemory, sessionFile, sessionRedis, sessionMongo:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown session store %q (want memory, file, redis or mongo)", c.Storage.Sessions)
	}
	switch c.Cache.Backend {
	case cacheFile, cacheRedis, cacheNone:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Output.Template != "" {
		if err := pipeline.ValidateTemplate(c.Output.Template); err != nil {
			return err
		}
	}
	if err := pipeline.ValidateFormats(parseFormats(c.Output.Format)); err != nil {
		return err
	}
	return errs.ValidateHexColor(c.Output.Background)
}

// writeConfig encodes cfg as TOML.
func writeConfig(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
