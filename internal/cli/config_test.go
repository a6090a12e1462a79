package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
	"github.com/matzehuels/gridcollage/pkg/pipeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.toml", `
[output]
template = "featured"
width = 800
format = "png,webp"

[server]
addr = ":9000"
session_ttl = "30m"

[storage]
sessions = "redis"

[storage.redis]
addr = "localhost:6379"
db = 2

[cache]
backend = "none"
`)

	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Template != "featured" || cfg.Output.Width != 800 || cfg.Output.Format != "png,webp" {
		t.Errorf("output = %+v", cfg.Output)
	}
	// Keys not in the file keep their defaults.
	if cfg.Output.Height != pipeline.DefaultHeight {
		t.Errorf("height = %d, want default %d", cfg.Output.Height, pipeline.DefaultHeight)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.SessionTTL != 30*time.Minute {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Storage.Sessions != sessionRedis || cfg.Storage.Redis.Addr != "localhost:6379" || cfg.Storage.Redis.DB != 2 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Blobs != blobBadger {
		t.Errorf("blobs = %q, want default %q", cfg.Storage.Blobs, blobBadger)
	}
	if cfg.Cache.Backend != cacheNone {
		t.Errorf("cache = %q", cfg.Cache.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := loadConfig(missing, false)
	if err != nil {
		t.Fatalf("implicit missing file: %v", err)
	}
	if cfg.Output.Template != defaultConfig().Output.Template {
		t.Errorf("implicit missing file should give defaults, got %+v", cfg.Output)
	}

	if _, err := loadConfig(missing, true); err == nil {
		t.Error("explicit missing file: expected error")
	}

	unknown := writeFile(t, "unknown.toml", "[output]\ncolour = \"red\"\n")
	if _, err := loadConfig(unknown, false); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("unknown key: err = %v, want INVALID_INPUT", err)
	}

	broken := writeFile(t, "broken.toml", "[output\n")
	if _, err := loadConfig(broken, false); err == nil {
		t.Error("malformed file: expected error")
	}

	if cfg, err := loadConfig("", true); err != nil || cfg == nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GRIDCOLLAGE_ADDR":           ":7000",
		"GRIDCOLLAGE_BLOB_STORE":     "minio",
		"GRIDCOLLAGE_MINIO_ENDPOINT": "minio:9000",
		"GRIDCOLLAGE_MINIO_USE_SSL":  "true",
		"GRIDCOLLAGE_SESSION_STORE":  "mongo",
		"GRIDCOLLAGE_MONGO_URI":      "mongodb://db",
		"GRIDCOLLAGE_REDIS_ADDR":     "redis:6379",
		"GRIDCOLLAGE_REDIS_PASSWORD": "hunter2",
		"GRIDCOLLAGE_CACHE":          "redis",
	}
	cfg := defaultConfig()
	applyEnv(cfg, func(k string) string { return env[k] })

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"addr", cfg.Server.Addr, ":7000"},
		{"blobs", cfg.Storage.Blobs, "minio"},
		{"minio endpoint", cfg.Storage.MinIO.Endpoint, "minio:9000"},
		{"sessions", cfg.Storage.Sessions, "mongo"},
		{"mongo uri", cfg.Storage.Mongo.URI, "mongodb://db"},
		{"session redis", cfg.Storage.Redis.Addr, "redis:6379"},
		{"cache redis", cfg.Cache.RedisAddr, "redis:6379"},
		{"session redis password", cfg.Storage.Redis.Password, "hunter2"},
		{"cache redis password", cfg.Cache.RedisPassword, "hunter2"},
		{"cache", cfg.Cache.Backend, "redis"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if !cfg.Storage.MinIO.UseSSL {
		t.Error("MinIO UseSSL not applied")
	}
}

func TestApplyEnvKeepsUnset(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.MinIO.UseSSL = true
	applyEnv(cfg, func(string) string { return "" })

	if cfg.Server.Addr != defaultConfig().Server.Addr {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if !cfg.Storage.MinIO.UseSSL {
		t.Error("empty MINIO_USE_SSL should not reset the config value")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		code   errs.Code
	}{
		{"defaults", func(*Config) {}, ""},
		{"blob store", func(c *Config) { c.Storage.Blobs = "s3" }, errs.ErrCodeInvalidInput},
		{"session store", func(c *Config) { c.Storage.Sessions = "etcd" }, errs.ErrCodeInvalidInput},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, errs.ErrCodeInvalidInput},
		{"template", func(c *Config) { c.Output.Template = "mosaic" }, errs.ErrCodeTemplateNotFound},
		{"empty template", func(c *Config) { c.Output.Template = "" }, ""},
		{"background", func(c *Config) { c.Output.Background = "white" }, errs.ErrCodeInvalidColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if !errs.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}

	cfg := defaultConfig()
	cfg.Output.Format = "gif"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown format: expected error")
	}
}

func TestRedact(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.MinIO.SecretKey = "minio-secret"
	cfg.Storage.Redis.Password = "redis-secret"
	cfg.Storage.Mongo.URI = "mongodb://user:pass@db"
	cfg.Cache.RedisPassword = "cache-secret"

	var buf bytes.Buffer
	if err := writeConfig(&buf, redact(cfg)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, secret := range []string{"minio-secret", "redis-secret", "user:pass", "cache-secret"} {
		if strings.Contains(out, secret) {
			t.Errorf("output leaks %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "[output]") || !strings.Contains(out, `"***"`) {
		t.Errorf("unexpected output:\n%s", out)
	}
	if cfg.Storage.MinIO.SecretKey != "minio-secret" {
		t.Error("redact modified its input")
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "GRIDCOLLAGE_TEST_DOTENV"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-file\n")
	if err := loadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}

	if err := loadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env: %v", err)
	}
}
