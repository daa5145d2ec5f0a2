package server

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/qlink/internal/shared"
)

func newTokenServer(t *testing.T, check func(form url.Values)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if check != nil {
			check(r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(tokenURL, redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    "client",
		RedirectURL: redirect,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/authorize",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Routing", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("Logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, shared.ParseLogLevel("debug"))

		router := NewBasicRouter()
		router.Use(Logging(logger))
		router.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "418") || !strings.Contains(out, "/teapot") {
			t.Errorf("expected status and path in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("expected query string to be left out, got %q", out)
		}
	})
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes Follow Redirect URL", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("", "http://127.0.0.1:8080/spotify/callback"), "state", "")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/spotify/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("", "http://127.0.0.1/callback"), "expected", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("Denied", func(t *testing.T) {
		h := NewOAuthHandler(testConfig("", "http://127.0.0.1/callback"), "s", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("Exchange With Verifier", func(t *testing.T) {
		verifier := oauth2.GenerateVerifier()
		tokens := newTokenServer(t, func(form url.Values) {
			if form.Get("code") != "abc" {
				t.Errorf("expected code abc, got %s", form.Get("code"))
			}
			if form.Get("code_verifier") != verifier {
				t.Errorf("expected code_verifier to be sent")
			}
		})

		h := NewOAuthHandler(testConfig(tokens.URL, "http://127.0.0.1/callback"), "s", verifier)
		if authURL := h.AuthCodeURL(); !strings.Contains(authURL, "code_challenge=") {
			t.Errorf("expected code challenge in %s", authURL)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token.AccessToken != "access" || result.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", result.Token)
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected second callback to be rejected, got %d", rec.Code)
		}
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestAuthorize(t *testing.T) {
	t.Run("Completes Flow", func(t *testing.T) {
		tokens := newTokenServer(t, nil)
		addr := freeAddr(t)
		config := testConfig(tokens.URL, fmt.Sprintf("http://%s/callback", addr))

		open := func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			state := u.Query().Get("state")
			go func() {
				resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=%s&code=abc", addr, url.QueryEscape(state)))
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		token, err := Authorize(context.Background(), config, addr, open, 5*time.Second, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "access" {
			t.Errorf("expected access token, got %s", token.AccessToken)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		addr := freeAddr(t)
		config := testConfig("http://127.0.0.1:1/token", fmt.Sprintf("http://%s/callback", addr))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := Authorize(ctx, config, addr, nil, time.Minute, nil); err == nil {
			t.Error("expected error for canceled context")
		}
	})
}
