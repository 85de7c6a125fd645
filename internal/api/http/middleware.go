package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/feedthegoat/content-service/internal/audit"
	"github.com/feedthegoat/content-service/internal/observability"
	apperrors "github.com/feedthegoat/content-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares. The audit recorder runs
// outermost so the status it observes is the one the client receives; the
// error handler runs inside it and stashes failures for the recorder.
func RegisterMiddlewares(app *fiber.App, recorder *audit.Recorder, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(recorder.Handle)
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			panicked := false
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", stack))
				audit.StashFailure(c, audit.Failure{PanicVal: r, Stack: stack})
				panicked = true
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				if !panicked {
					audit.StashFailure(c, audit.Failure{Err: err})
				}
				domainErr := apperrors.ToDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}
