package cli

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/tester")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/home/tester", ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestXDGDirs(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"cache", cacheDir, filepath.Join(base, "cache", appName)},
		{"config", configDir, filepath.Join(base, "config", appName)},
		{"data", dataDir, filepath.Join(base, "data", appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalCacheDirHonoursConfig(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.Config.Cache.Dir = "/tmp/collage-cache"
	dir, err := c.localCacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/collage-cache" {
		t.Errorf("localCacheDir() = %q", dir)
	}

	c.Config.Cache.Dir = ""
	t.Setenv("XDG_CACHE_HOME", "/xdg")
	if dir, _ := c.localCacheDir(); !strings.HasPrefix(dir, "/xdg") {
		t.Errorf("localCacheDir() = %q, want under /xdg", dir)
	}
}
