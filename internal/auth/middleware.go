package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/feedthegoat/content-service/internal/domain"
	apperrors "github.com/feedthegoat/content-service/pkg/util/errorutil"
)

const callerKey = "auth_caller"

// RoleLookup resolves the role names currently assigned to a user from the
// backing store. Roles are re-read per request (not trusted from the token)
// so revocation takes effect without waiting for token expiry.
type RoleLookup interface {
	RolesForUser(ctx context.Context, userID int64) ([]string, error)
}

// Gate validates bearer tokens and enforces per-route role requirements
// before any handler code runs.
type Gate struct {
	tokens   *TokenManager
	roles    RoleLookup
	cache    *gocache.Cache
	cacheTTL time.Duration
}

// NewGate constructs the gate. A non-zero cacheTTL enables a short-lived
// in-process cache in front of the role lookup; the TTL bounds how long a
// role revocation can go unnoticed.
func NewGate(tokens *TokenManager, roles RoleLookup, cacheTTL time.Duration) *Gate {
	g := &Gate{tokens: tokens, roles: roles, cacheTTL: cacheTTL}
	if cacheTTL > 0 {
		g.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return g
}

// Authenticate extracts and validates the bearer credential and stores the
// resolved caller identity for downstream middleware and handlers.
func (g *Gate) Authenticate(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	caller, err := g.tokens.Validate(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(callerKey, caller)
	return c.Next()
}

// Require returns a handler permitting only callers holding at least one of
// the given roles. Role membership is resolved from the store, not from the
// token claim, so the check reflects the current assignment.
func (g *Gate) Require(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if g.roles == nil {
			return apperrors.NewInternalError(nil)
		}

		held, err := g.rolesFor(c.Context(), caller.UserID)
		if err != nil {
			return apperrors.NewInternalError(err)
		}

		for _, have := range held {
			for _, want := range required {
				if have == want {
					return c.Next()
				}
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}

func (g *Gate) rolesFor(ctx context.Context, userID int64) ([]string, error) {
	key := strconv.FormatInt(userID, 10)
	if g.cache != nil {
		if cached, found := g.cache.Get(key); found {
			return cached.([]string), nil
		}
	}

	held, err := g.roles.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache.Set(key, held, g.cacheTTL)
	}
	return held, nil
}

// CallerFromContext retrieves the authenticated caller identity.
func CallerFromContext(c *fiber.Ctx) (*domain.CallerIdentity, bool) {
	val := c.Locals(callerKey)
	if val == nil {
		return nil, false
	}
	caller, ok := val.(*domain.CallerIdentity)
	return caller, ok
}
