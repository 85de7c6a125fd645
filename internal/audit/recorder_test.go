package audit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/feedthegoat/content-service/internal/api/http"
	"github.com/feedthegoat/content-service/internal/audit"
	"github.com/feedthegoat/content-service/internal/auth"
	"github.com/feedthegoat/content-service/internal/config"
	"github.com/feedthegoat/content-service/internal/domain"
)

type chanStore struct {
	ch  chan *domain.AuditRecord
	err error
}

func (s *chanStore) Insert(_ context.Context, rec *domain.AuditRecord) error {
	if s.err != nil {
		return s.err
	}
	s.ch <- rec
	return nil
}

func (s *chanStore) await(t *testing.T) *domain.AuditRecord {
	t.Helper()
	select {
	case rec := <-s.ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit record")
		return nil
	}
}

func (s *chanStore) expectNone(t *testing.T) {
	t.Helper()
	select {
	case rec := <-s.ch:
		t.Fatalf("unexpected audit record for %s %s", rec.Method, rec.Path)
	case <-time.After(100 * time.Millisecond):
	}
}

func testConfig() config.AuditConfig {
	return config.AuditConfig{
		BodyCapBytes:        4096,
		UserAgentCapBytes:   512,
		QueueSize:           64,
		WriteTimeoutSeconds: 1,
		SkipPrefixes:        []string{"/health", "/docs"},
		SensitivePaths:      []string{"/login", "/register", "/refresh-token"},
	}
}

func newAuditedApp(t *testing.T, store audit.Store, cfg config.AuditConfig) (*fiber.App, func()) {
	t.Helper()
	writer := audit.NewWriter(store, zap.NewNop(), nil, cfg.QueueSize, cfg.WriteTimeout())
	writer.Start()
	recorder := audit.NewRecorder(writer, cfg, nil, zap.NewNop())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, recorder, zap.NewNop(), nil, 0)
	return app, writer.Close
}

func TestRecorderCapturesRequestMetadata(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	app.Post("/notes", func(c *fiber.Ctx) error {
		return c.Status(http.StatusCreated).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/notes?tag=daily", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent/1.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rec := store.await(t)
	require.Equal(t, http.MethodPost, rec.Method)
	require.Equal(t, "/notes", rec.Path)
	require.Equal(t, "tag=daily", rec.QueryString)
	require.Equal(t, "203.0.113.7", rec.ClientIP)
	require.Equal(t, "test-agent/1.0", rec.UserAgent)
	require.Equal(t, `{"text":"hello"}`, rec.RequestBody)
	require.Equal(t, http.StatusCreated, rec.StatusCode)
	require.Nil(t, rec.UserID)
	require.Empty(t, rec.ErrorText)
}

func TestRecorderSkipsExcludedPaths(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/static/app.js", func(c *fiber.Ctx) error { return c.SendString("js") })

	for _, path := range []string{"/health/live", "/static/app.js"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	store.expectNone(t)
}

func TestRecorderOmitsSensitiveBodies(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	app.Post("/auth/login", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	big := strings.Repeat("x", 50*1024)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(big))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := store.await(t)
	require.Empty(t, rec.RequestBody, "credential payloads must never land in the audit trail")
}

func TestRecorderCapsBody(t *testing.T) {
	cfg := testConfig()
	cfg.BodyCapBytes = 4000
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, cfg)
	defer stop()

	app.Post("/notes", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	body := strings.Repeat("a", 10*1024)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := store.await(t)
	require.True(t, strings.HasSuffix(rec.RequestBody, "...[truncated]"))
	require.Equal(t, body[:4000], strings.TrimSuffix(rec.RequestBody, "...[truncated]"))
}

func TestRecorderIgnoresBodylessMethods(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	app.Delete("/notes/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/notes/1", strings.NewReader("payload")))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	rec := store.await(t)
	require.Empty(t, rec.RequestBody)
}

func TestRecorderCapturesHandlerErrors(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	app.Post("/boom", func(c *fiber.Ctx) error {
		return errors.New("kaput")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/boom", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	rec := store.await(t)
	require.Equal(t, http.StatusInternalServerError, rec.StatusCode)
	require.Contains(t, rec.ErrorText, "kaput")
	require.NotEmpty(t, rec.ErrorType)
}

func TestRecorderCapturesPanics(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	rec := store.await(t)
	require.Equal(t, http.StatusInternalServerError, rec.StatusCode)
	require.Equal(t, "panic", rec.ErrorType)
	require.Contains(t, rec.ErrorText, "boom")
	require.NotEmpty(t, rec.StackTrace)
}

func TestRecorderResolvesAuthenticatedUser(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8)}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	tm, err := auth.NewTokenManager("test-secret", "iss", "aud", time.Minute)
	require.NoError(t, err)
	gate := auth.NewGate(tm, staticRoles{42: {"Admin"}}, 0)

	app.Post("/admin", gate.Authenticate, gate.Require("Admin"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	token, _, err := tm.Issue(42, "Admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := store.await(t)
	require.NotNil(t, rec.UserID)
	require.Equal(t, int64(42), *rec.UserID)
}

func TestRecorderStoreFailureLeavesResponseUntouched(t *testing.T) {
	store := &chanStore{ch: make(chan *domain.AuditRecord, 8), err: errors.New("store down")}
	app, stop := newAuditedApp(t, store, testConfig())
	defer stop()

	app.Post("/notes", func(c *fiber.Ctx) error {
		return c.Status(http.StatusCreated).JSON(fiber.Map{"id": 7})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{}")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

type staticRoles map[int64][]string

func (s staticRoles) RolesForUser(_ context.Context, userID int64) ([]string, error) {
	return s[userID], nil
}
