package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type authServer struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refreshCalls atomic.Int64

	// barrier releases stale-token requests only once both arrived, so both
	// callers hit the refresh path concurrently.
	barrierSize int
	waiting     int
	release     chan struct{}
}

func newAuthServer(access, refresh string) *authServer {
	return &authServer{accessToken: access, refreshToken: refresh, release: make(chan struct{})}
}

func (s *authServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		// widen the window in which a second caller can join the exchange
		time.Sleep(50 * time.Millisecond)
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		valid := req.RefreshToken == s.refreshToken
		if valid {
			s.accessToken = s.accessToken + "+"
			s.refreshToken = s.refreshToken + "+"
		}
		access, refresh := s.accessToken, s.refreshToken
		s.mu.Unlock()

		if !valid {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":                true,
			"token":                  access,
			"refreshToken":           refresh,
			"refreshTokenExpiration": time.Now().Add(time.Hour),
		})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		current := "Bearer " + s.accessToken
		s.mu.Unlock()

		if r.Header.Get("Authorization") != current {
			if s.barrierSize > 0 {
				s.mu.Lock()
				s.waiting++
				if s.waiting == s.barrierSize {
					close(s.release)
				}
				s.mu.Unlock()
				<-s.release
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	return mux
}

func TestSingleFlightRefresh(t *testing.T) {
	backend := newAuthServer("fresh", "rt1")
	backend.barrierSize = 2
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetCredentials(Credentials{
		AccessToken:      "stale",
		RefreshToken:     "rt1",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out map[string]any
			errs[i] = c.DoJSON(context.Background(), http.MethodGet, "/data", nil, &out)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int64(1), backend.refreshCalls.Load(), "concurrent 401s must share one refresh exchange")
	require.Equal(t, "fresh+", c.Credentials().AccessToken)
	require.Equal(t, "rt1+", c.Credentials().RefreshToken, "refresh credential must be rotated")
}

func TestRefreshReplaysOriginalRequestOnce(t *testing.T) {
	backend := newAuthServer("fresh", "rt1")
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetCredentials(Credentials{
		AccessToken:      "stale",
		RefreshToken:     "rt1",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	})

	var out map[string]any
	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "/data", nil, &out))
	require.Equal(t, true, out["ok"])
	require.Equal(t, int64(1), backend.refreshCalls.Load())
}

func TestNoRefreshLoopOnPersistent401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh-token" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":                true,
				"token":                  "new",
				"refreshToken":           "rt2",
				"refreshTokenExpiration": time.Now().Add(time.Hour),
			})
			return
		}
		// keeps rejecting even the fresh token
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetCredentials(Credentials{
		AccessToken:      "stale",
		RefreshToken:     "rt1",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	})

	err := c.DoJSON(context.Background(), http.MethodGet, "/data", nil, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionExpired)
}

func TestExpiredRefreshCredentialEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	expired := false
	c := NewClient(srv.URL, WithSessionExpiredHandler(func() { expired = true }))
	c.SetCredentials(Credentials{
		AccessToken:      "stale",
		RefreshToken:     "rt1",
		RefreshExpiresAt: time.Now().Add(-time.Minute),
	})

	err := c.DoJSON(context.Background(), http.MethodGet, "/data", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.True(t, expired, "session-expired handler must fire")
	require.Empty(t, c.Credentials().RefreshToken, "credentials must be cleared")
}

func TestFailedRefreshEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	expired := false
	c := NewClient(srv.URL, WithSessionExpiredHandler(func() { expired = true }))
	c.SetCredentials(Credentials{
		AccessToken:      "stale",
		RefreshToken:     "rt1",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	})

	err := c.DoJSON(context.Background(), http.MethodGet, "/data", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.True(t, expired)
}

func TestInactivityExpiresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithInactivityTTL(10*time.Millisecond))
	c.SetCredentials(Credentials{
		AccessToken:      "tok",
		RefreshToken:     "rt1",
		RefreshExpiresAt: time.Now().Add(time.Hour),
	})

	time.Sleep(30 * time.Millisecond)
	err := c.DoJSON(context.Background(), http.MethodGet, "/data", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestLoginStoresCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":                true,
			"token":                  "access-1",
			"refreshToken":           "refresh-1",
			"refreshTokenExpiration": time.Now().Add(time.Hour),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "goat@example.com", "pw"))
	creds := c.Credentials()
	require.Equal(t, "access-1", creds.AccessToken)
	require.Equal(t, "refresh-1", creds.RefreshToken)
}
