package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/qlink/internal/formatter"
	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/monitor"
	"github.com/desertthunder/qlink/internal/services"
	"github.com/desertthunder/qlink/internal/shared"
	tu "github.com/desertthunder/qlink/internal/testing"
)

type stubSupplier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSupplier) Obtain(ctx context.Context) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return models.Credential{}, s.err
	}
	return models.Credential{AccessToken: "token", IssuedAt: time.Now()}, nil
}

const (
	introJSON = `{"progress_ms": 1000, "is_playing": true, "item": {"id": "T1", "name": "Intro",
		"artists": [{"name": "A"}], "duration_ms": 6000, "uri": "spotify:track:T1"}}`
	songJSON = `{"progress_ms": 0, "is_playing": true, "item": {"id": "T2", "name": "Song",
		"artists": [{"name": "B"}], "duration_ms": 200000, "uri": "spotify:track:T2"}}`
)

// testEnv is a runner backed by a temporary config, database and Spotify server.
type testEnv struct {
	runner     *Runner
	output     *bytes.Buffer
	configPath string
	clock      *tu.FakeClock
	supplier   *stubSupplier
}

func newTestEnv(t *testing.T, handler http.HandlerFunc, input string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "qlink.db")
	config.Credentials.Spotify.ClientID = "client"
	config.Credentials.Spotify.RefreshToken = "refresh"

	configPath := filepath.Join(dir, "config.toml")
	if err := shared.SaveConfig(configPath, config); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	env := &testEnv{
		output:     &bytes.Buffer{},
		configPath: configPath,
		clock:      tu.NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)),
		supplier:   &stubSupplier{},
	}
	env.runner = NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     log.New(io.Discard),
		Output:     env.output,
		Input:      strings.NewReader(input),
		Clock:      env.clock,
		Spotify:    services.NewSpotifyService(services.NewAPIClient(server.URL, nil, time.Second, 0)),
		Supplier:   env.supplier,
	})
	t.Cleanup(func() { env.runner.Close() })
	return env
}

func (e *testEnv) run(ctx context.Context, args ...string) error {
	return newApp(e.runner).Run(ctx, append([]string{"qlink", "--config", e.configPath}, args...))
}

func (e *testEnv) seedLink(t *testing.T) {
	t.Helper()
	if err := e.runner.openStore(); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	trigger := models.Track{ID: "T1", Name: "Intro", Artists: []string{"A"}, URI: "spotify:track:T1"}
	target := models.Track{ID: "T2", Name: "Song", Artists: []string{"B"}, URI: "spotify:track:T2"}
	if err := e.runner.links.Insert(models.NewLink(0, trigger, target)); err != nil {
		t.Fatalf("failed to seed link: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			spotify := services.NewSpotifyService(nil)
			supplier := &stubSupplier{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Spotify:    spotify,
				Supplier:   supplier,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.spotify != spotify {
				t.Error("expected spotify to be set")
			}
			if runner.supplier != supplier {
				t.Error("expected supplier to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
			if runner.clock == nil {
				t.Error("expected a system clock")
			}
		})

		t.Run("builds the Spotify service from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.spotifyService() == nil {
				t.Fatal("expected a service")
			}
			if runner.spotifyService() != runner.spotify {
				t.Error("expected the service to be reused")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, name := range []string{"setup", "auth", "links", "settings", "watch"} {
			if !names[name] {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})

	t.Run("callbackAddr", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		runner.config.Server = shared.ServerConfig{}
		if got := runner.callbackAddr(); got != "127.0.0.1:8080" {
			t.Errorf("expected default address, got %s", got)
		}

		runner.config.Server = shared.ServerConfig{Host: "localhost", Port: 9000}
		if got := runner.callbackAddr(); got != "localhost:9000" {
			t.Errorf("expected configured address, got %s", got)
		}
	})

	t.Run("credentialSupplier", func(t *testing.T) {
		t.Run("requires a client id", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.config.Credentials.Spotify.ClientID = ""

			_, err := runner.credentialSupplier()
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("builds an OAuth supplier from the stored token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.config.Credentials.Spotify.ClientID = "client"
			runner.config.Credentials.Spotify.RefreshToken = "refresh"

			supplier, err := runner.credentialSupplier()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			oauth, ok := supplier.(*services.OAuthSupplier)
			if !ok {
				t.Fatalf("expected *services.OAuthSupplier, got %T", supplier)
			}
			if oauth.Token().RefreshToken != "refresh" {
				t.Errorf("expected the stored refresh token, got %q", oauth.Token().RefreshToken)
			}
		})
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")

			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "test_id"
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})

			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loadedConfig, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loadedConfig.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loadedConfig.Credentials.Spotify.AccessToken)
			}
			if loadedConfig.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loadedConfig.Credentials.Spotify.RefreshToken)
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})
			runner.config = nil

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "config is nil") {
				t.Errorf("expected nil config error, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "new_token", RefreshToken: "new_refresh"}); err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			invalidPath := filepath.Join(t.TempDir(), "missing", "config.toml")
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), ConfigPath: invalidPath})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("handles Update error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveTokens(nil)
			if err == nil || !strings.Contains(err.Error(), "failed to update spotify configuration") {
				t.Fatalf("expected update error, got %v", err)
			}
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials in chain, got %v", err)
			}
		})
	})
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("config is loaded before every command", func(t *testing.T) {
		env := newTestEnv(t, nil, "")
		if err := env.run(ctx, "settings", "show"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if env.runner.configPath != env.configPath {
			t.Errorf("expected config path %s, got %s", env.configPath, env.runner.configPath)
		}
		if env.runner.config.Credentials.Spotify.ClientID != "client" {
			t.Error("expected the config file to be loaded")
		}
	})

	t.Run("setup", func(t *testing.T) {
		t.Run("database", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			if err := env.run(ctx, "setup", "database"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, env.runner.config.Database.Path)
		})

		t.Run("database reset", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			env.seedLink(t)

			if err := env.run(ctx, "setup", "database", "--reset"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(env.output.String(), "Database reset") {
				t.Errorf("expected reset confirmation, got %q", env.output.String())
			}

			db, err := shared.NewDatabase(env.runner.config.Database.Path)
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			defer db.Close()

			var count int
			if err := db.QueryRow("SELECT COUNT(*) FROM links").Scan(&count); err != nil {
				t.Fatalf("links table should exist after reset: %v", err)
			}
			if count != 0 {
				t.Errorf("expected no links after reset, got %d", count)
			}
		})

		t.Run("config", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			env.configPath = filepath.Join(t.TempDir(), "new.toml")

			if err := env.run(ctx, "setup", "config"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, env.configPath)

			if err := env.run(ctx, "setup", "config"); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected an existing config to be kept, got %v", err)
			}
		})
	})

	t.Run("auth", func(t *testing.T) {
		t.Run("login stores the authorized token", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			env.runner.authorize = func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
				if config.ClientID != "client" {
					t.Errorf("unexpected client id %s", config.ClientID)
				}
				return &oauth2.Token{AccessToken: "access", RefreshToken: "fresh"}, nil
			}

			if err := env.run(ctx, "auth", "login"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(env.configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Credentials.Spotify.RefreshToken != "fresh" {
				t.Errorf("expected the new refresh token to be saved, got %q", loaded.Credentials.Spotify.RefreshToken)
			}
			if !strings.Contains(env.output.String(), "Authorization successful") {
				t.Errorf("unexpected output %q", env.output.String())
			}
		})

		t.Run("login failure", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			env.runner.authorize = func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
				return nil, shared.ErrTimeout
			}

			if err := env.run(ctx, "auth", "login"); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("status reports the active device", func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/me/player/devices" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(`{"devices": [{"id": "D0", "is_active": false}, {"id": "D1", "is_active": true}]}`))
			}, "")

			if err := env.run(ctx, "auth", "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(env.output.String(), "Device: ✓ D1") {
				t.Errorf("expected the active device, got %q", env.output.String())
			}
		})

		t.Run("status without a refresh token", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			config, _ := shared.LoadConfig(env.configPath)
			config.Credentials.Spotify.RefreshToken = ""
			shared.SaveConfig(env.configPath, config)

			if err := env.run(ctx, "auth", "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(env.output.String(), "Not authenticated") {
				t.Errorf("unexpected output %q", env.output.String())
			}
			if env.supplier.calls != 0 {
				t.Error("expected no credential to be requested")
			}
		})
	})

	t.Run("links", func(t *testing.T) {
		t.Run("add captures trigger then target", func(t *testing.T) {
			var mu sync.Mutex
			calls := 0
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				defer mu.Unlock()
				calls++
				if calls == 1 {
					w.Write([]byte(introJSON))
				} else {
					w.Write([]byte(songJSON))
				}
			}, "\n\n")

			if err := env.run(ctx, "links", "add"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			link, err := env.runner.links.FindByTriggerID("T1")
			if err != nil {
				t.Fatalf("expected the link to be stored, got %v", err)
			}
			if link.Target().ID != "T2" || link.Target().URI != "spotify:track:T2" {
				t.Errorf("unexpected target %+v", link.Target())
			}
			if !strings.Contains(env.output.String(), "1. Intro by A linked to Song by B") {
				t.Errorf("unexpected output %q", env.output.String())
			}
		})

		t.Run("add aborts when nothing is playing", func(t *testing.T) {
			var mu sync.Mutex
			calls := 0
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				defer mu.Unlock()
				calls++
				if calls == 1 {
					w.Write([]byte(introJSON))
					return
				}
				w.WriteHeader(http.StatusNoContent)
			}, "\n\n")

			err := env.run(ctx, "links", "add")
			if !errors.Is(err, shared.ErrNothingPlaying) {
				t.Fatalf("expected ErrNothingPlaying, got %v", err)
			}
			if !strings.Contains(err.Error(), "the link could not be completed") {
				t.Errorf("unexpected message %q", err.Error())
			}
			if env.clock.CountSleeps(10*time.Second) != 1 {
				t.Errorf("expected the no-session backoff, got %v", env.clock.Sleeps())
			}

			all, _ := env.runner.links.All()
			if len(all) != 0 {
				t.Errorf("expected no link to be stored, got %d", len(all))
			}
		})

		t.Run("add rejects a track linked to itself", func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(introJSON))
			}, "\n\n")

			if err := env.run(ctx, "links", "add"); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("list", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			if err := env.run(ctx, "links", "list"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(env.output.String(), "No links yet") {
				t.Errorf("unexpected output %q", env.output.String())
			}

			env.seedLink(t)
			env.output.Reset()
			if err := env.run(ctx, "links", "list"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(env.output.String(), "1. Intro by A linked to Song by B") {
				t.Errorf("unexpected output %q", env.output.String())
			}
		})

		t.Run("list as JSON", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			env.seedLink(t)

			if err := env.run(ctx, "links", "list", "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var records []formatter.LinkRecord
			if err := json.Unmarshal(env.output.Bytes(), &records); err != nil {
				t.Fatalf("expected JSON output, got %v: %q", err, env.output.String())
			}
			if len(records) != 1 || records[0].TargetURI != "spotify:track:T2" {
				t.Errorf("unexpected records %+v", records)
			}
		})

		t.Run("remove", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			env.seedLink(t)

			if err := env.run(ctx, "links", "remove", "T1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if _, err := env.runner.links.FindByTriggerID("T1"); !errors.Is(err, shared.ErrLinkNotFound) {
				t.Errorf("expected the link to be gone, got %v", err)
			}
			if err := env.run(ctx, "links", "remove", "T1"); !errors.Is(err, shared.ErrLinkNotFound) {
				t.Errorf("expected ErrLinkNotFound, got %v", err)
			}
			if err := env.run(ctx, "links", "remove"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("export", func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			env.seedLink(t)
			path := filepath.Join(t.TempDir(), "links.md")

			if err := env.run(ctx, "links", "export", "--format", "md", "-o", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if content := tu.MustReadFile(t, path); !strings.Contains(content, "# Links") {
				t.Errorf("unexpected export %q", content)
			}

			if err := env.run(ctx, "links", "export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("settings", func(t *testing.T) {
		env := newTestEnv(t, nil, "")

		if err := env.run(ctx, "settings", "show"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "Reverse links: off") {
			t.Errorf("unexpected output %q", env.output.String())
		}

		if err := env.run(ctx, "settings", "set", "--reverse"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		env.output.Reset()
		if err := env.run(ctx, "settings", "show"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "Reverse links: on") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("watch queues the target of a playing trigger", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		var queued []string
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()

			switch r.URL.Path {
			case "/me/player/currently-playing":
				if len(queued) > 0 {
					cancel()
				}
				w.Write([]byte(introJSON))
			case "/me/player/devices":
				w.Write([]byte(`{"devices": [{"id": "D1", "is_active": true}]}`))
			case "/me/player/queue":
				queued = append(queued, r.URL.Query().Get("uri")+"@"+r.URL.Query().Get("device_id"))
				w.WriteHeader(http.StatusNoContent)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}, "")
		env.seedLink(t)

		if err := env.run(ctx, "watch"); err != nil {
			t.Fatalf("expected cancellation to stop cleanly, got %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(queued) != 1 || queued[0] != "spotify:track:T2@D1" {
			t.Errorf("expected one enqueue of T2 on D1, got %v", queued)
		}
		if env.supplier.calls != 1 {
			t.Errorf("expected one credential, got %d", env.supplier.calls)
		}

		output := env.output.String()
		for _, want := range []string{"Watching playback", "Matched Intro by A", "✓ Queued Song by B", "Stopped"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output %q", want, output)
			}
		}
	})

	t.Run("watch stops when no credential can be issued", func(t *testing.T) {
		env := newTestEnv(t, nil, "")
		env.supplier.err = shared.ErrNoRefreshToken

		if err := env.run(ctx, "watch"); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})
}

func TestRepeats(t *testing.T) {
	t1 := models.Track{ID: "T1"}
	t2 := models.Track{ID: "T2"}

	tc := []struct {
		name string
		prev monitor.Event
		next monitor.Event
		want bool
	}{
		{"same track", monitor.Event{Kind: monitor.Observed, Track: t1}, monitor.Event{Kind: monitor.Observed, Track: t1}, true},
		{"new track", monitor.Event{Kind: monitor.Observed, Track: t1}, monitor.Event{Kind: monitor.Observed, Track: t2}, false},
		{"still idle", monitor.Event{Kind: monitor.Idle}, monitor.Event{Kind: monitor.Idle}, true},
		{"different kinds", monitor.Event{Kind: monitor.Idle}, monitor.Event{Kind: monitor.Observed, Track: t1}, false},
		{"repeated errors", monitor.Event{Kind: monitor.ServiceError}, monitor.Event{Kind: monitor.ServiceError}, false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := repeats(tt.prev, tt.next); got != tt.want {
				t.Errorf("repeats() = %v, want %v", got, tt.want)
			}
		})
	}
}
