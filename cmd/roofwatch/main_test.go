package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/roofwatch-core/internal/auth"
	"github.com/nerrad567/roofwatch-core/internal/infrastructure/config"
)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// writeConfig writes a config file with the given rate limit backend and
// sets ROOFWATCH_CONFIG to it.
func writeConfig(t *testing.T, dbPath, backend string) {
	t.Helper()

	content := `
database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

redis:
  addr: "127.0.0.1:1"
  dial_timeout: 1

api:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(freePort(t)) + `

logging:
  level: error
  format: text
  output: stdout

identity:
  provider: jwt
  jwt:
    secret: "` + testJWTSecret + `"

rate_limit:
  enabled: true
  backend: ` + backend + `

mqtt:
  enabled: false

influxdb:
  enabled: false
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("ROOFWATCH_CONFIG", path)
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("ROOFWATCH_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies validation stops startup.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, "", config.RateLimitBackendMemory)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("error = %v, want database.path", err)
	}
}

// TestRun_RedisUnreachable verifies the redis backend is required to start.
func TestRun_RedisUnreachable(t *testing.T) {
	writeConfig(t, filepath.Join(t.TempDir(), "roofwatch.db"), config.RateLimitBackendRedis)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when redis is unreachable")
	}
	if !strings.Contains(err.Error(), "redis") {
		t.Errorf("error = %v, want a redis error", err)
	}
}

// TestRun_StartupAndShutdown runs the full stack with the memory backend
// until the context expires.
func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "roofwatch.db")
	writeConfig(t, dbPath, config.RateLimitBackendMemory)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestRunMigrate(t *testing.T) {
	writeConfig(t, filepath.Join(t.TempDir(), "roofwatch.db"), config.RateLimitBackendMemory)
	ctx := context.Background()

	steps := []struct {
		action string
		want   string
	}{
		{"status", "pending  20260101_000000"},
		{"up", "applied  20260101_000000"},
		{"down", "pending  20260101_000000"},
	}
	for _, step := range steps {
		var out bytes.Buffer
		if err := runMigrate(ctx, step.action, &out); err != nil {
			t.Fatalf("runMigrate(%q) error = %v", step.action, err)
		}
		if !strings.Contains(out.String(), step.want) {
			t.Errorf("runMigrate(%q) output = %q, want %q", step.action, out.String(), step.want)
		}
	}

	if err := runMigrate(ctx, "sideways", &bytes.Buffer{}); err == nil {
		t.Error("runMigrate() should reject an unknown action")
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("ROOFWATCH_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("ROOFWATCH_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want /custom/path/config.yaml", got)
	}
}

func TestIdentityProvider(t *testing.T) {
	provider, signIn := identityProvider(config.IdentityConfig{
		Provider: config.IdentityProviderJWT,
		JWT:      config.JWTConfig{Secret: testJWTSecret},
	})
	if _, ok := provider.(*auth.JWTProvider); !ok {
		t.Errorf("jwt provider = %T", provider)
	}
	if signIn != nil {
		t.Error("jwt provider should not offer password sign-in")
	}

	provider, signIn = identityProvider(config.IdentityConfig{
		Provider: config.IdentityProviderRemote,
		Remote:   config.RemoteIdentityConfig{URL: "http://127.0.0.1:9999"},
	})
	if _, ok := provider.(*auth.RemoteProvider); !ok {
		t.Errorf("remote provider = %T", provider)
	}
	if signIn == nil {
		t.Error("remote provider should offer password sign-in")
	}
}
