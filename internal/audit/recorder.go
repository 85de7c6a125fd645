package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/feedthegoat/content-service/internal/auth"
	"github.com/feedthegoat/content-service/internal/config"
	"github.com/feedthegoat/content-service/internal/domain"
	"github.com/feedthegoat/content-service/internal/observability"
)

const (
	failureKey  = "audit_failure"
	truncMarker = "...[truncated]"

	errTextCap = 2048
	stackCap   = 8192
)

// Failure captures the error (or recovered panic) that terminated a request,
// stashed by the error-handling middleware for the recorder to pick up after
// the response is finalized.
type Failure struct {
	Err      error
	PanicVal interface{}
	Stack    []byte
}

// StashFailure records the terminal error of the current request so the
// audit recorder can include it. Called by the error-handling middleware.
func StashFailure(c *fiber.Ctx, f Failure) {
	c.Locals(failureKey, &f)
}

// Recorder is the outermost request middleware. It produces exactly one
// audit record per non-excluded request and never alters the response.
type Recorder struct {
	writer  *Writer
	cfg     config.AuditConfig
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRecorder constructs the recorder middleware.
func NewRecorder(writer *Writer, cfg config.AuditConfig, metrics *observability.Metrics, logger *zap.Logger) *Recorder {
	return &Recorder{writer: writer, cfg: cfg, metrics: metrics, logger: logger}
}

// Handle wraps the rest of the pipeline. Register it before every other
// middleware so the observed status code is the one the client receives.
func (r *Recorder) Handle(c *fiber.Ctx) error {
	path := c.Path()
	if r.skip(path) {
		return c.Next()
	}

	start := time.Now()
	rec := &domain.AuditRecord{
		Timestamp:   start.UTC(),
		Method:      c.Method(),
		Path:        path,
		QueryString: string(c.Request().URI().QueryString()),
		ClientIP:    clientIP(c),
		UserAgent:   truncate(c.Get(fiber.HeaderUserAgent), r.cfg.UserAgentCapBytes),
	}
	if r.captureBody(rec.Method, path) {
		rec.RequestBody = truncate(string(c.Body()), r.cfg.BodyCapBytes)
	}

	err := c.Next()

	// The error-handling middleware runs inside this one, so by now the
	// response status is final and any handler error or panic has been
	// stashed for us. Auth failures leave no caller; that is tolerated.
	if caller, ok := auth.CallerFromContext(c); ok {
		id := caller.UserID
		rec.UserID = &id
	}
	rec.StatusCode = c.Response().StatusCode()
	if f, ok := c.Locals(failureKey).(*Failure); ok && f != nil {
		r.applyFailure(rec, f)
	}
	elapsed := time.Since(start)
	rec.DurationMS = elapsed.Milliseconds()
	r.metrics.RecordRequest(rec.Path, rec.Method, rec.StatusCode, elapsed)

	r.writer.Enqueue(rec)
	return err
}

func (r *Recorder) applyFailure(rec *domain.AuditRecord, f *Failure) {
	switch {
	case f.PanicVal != nil:
		rec.ErrorText = truncate(fmt.Sprint(f.PanicVal), errTextCap)
		rec.ErrorType = "panic"
	case f.Err != nil:
		rec.ErrorText = truncate(f.Err.Error(), errTextCap)
		rec.ErrorType = fmt.Sprintf("%T", f.Err)
	}
	if len(f.Stack) > 0 {
		rec.StackTrace = truncate(string(f.Stack), stackCap)
	}
}

// skip excludes operational prefixes and anything that looks like a static
// asset (a dot in the last path segment).
func (r *Recorder) skip(path string) bool {
	for _, prefix := range r.cfg.SkipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	last := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		last = path[idx+1:]
	}
	return strings.Contains(last, ".")
}

// captureBody excludes bodyless methods and credential-carrying paths.
func (r *Recorder) captureBody(method, path string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodDelete, fiber.MethodOptions:
		return false
	}
	for _, sensitive := range r.cfg.SensitivePaths {
		if strings.Contains(path, sensitive) {
			return false
		}
	}
	return true
}

// clientIP prefers the first X-Forwarded-For entry over the peer address.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first := fwd
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			first = fwd[:idx]
		}
		if trimmed := strings.TrimSpace(first); trimmed != "" {
			return trimmed
		}
	}
	return c.IP()
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + truncMarker
}
