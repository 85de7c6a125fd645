package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/feedthegoat/content-service/internal/auth"
	"github.com/feedthegoat/content-service/internal/config"
	"github.com/feedthegoat/content-service/internal/domain"
	"github.com/feedthegoat/content-service/internal/events"
	"github.com/feedthegoat/content-service/internal/repository"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserSuspended       = errors.New("account suspended")
)

// TokenPair bundles the credentials returned by login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthService coordinates registration, login and refresh-token rotation.
type AuthService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	refresh    repository.RefreshTokenRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
	refreshTTL time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	RoleRepo         repository.RoleRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Dispatcher       events.Dispatcher
}

// NewAuthService builds the service. Fails when the JWT secret is missing;
// issuing unverifiable tokens is a deployment defect, not a runtime case.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		cfg.Auth.Audience,
		cfg.Auth.AccessTokenTTL(),
	)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		refresh:    deps.RefreshTokenRepo,
		tokenMgr:   tokenMgr,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		refreshTTL: cfg.Auth.RefreshTokenTTL(),
	}, nil
}

// Register creates a new subscriber account with the Member role.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, *TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if err != pgx.ErrNoRows {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	if err := s.roles.Assign(ctx, user.ID, domain.RoleMember); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(ctx, user.ID, domain.RoleMember)
	if err != nil {
		return nil, nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRegistered,
			ActorID:   &user.ID,
			Timestamp: time.Now(),
			Payload:   events.UserRegisteredPayload{UserID: user.ID, Email: user.Email},
		})
	}
	return user, pair, nil
}

// Login authenticates a subscriber and issues a fresh credential pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, []string, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, nil, ErrInvalidCredentials
		}
		return nil, nil, nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, nil, nil, ErrUserSuspended
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, nil, ErrInvalidCredentials
	}

	held, err := s.roles.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	pair, err := s.issuePair(ctx, user.ID, primaryRole(held))
	if err != nil {
		return nil, nil, nil, err
	}
	return user, held, pair, nil
}

// Refresh exchanges a refresh credential for a new pair. The presented token
// is consumed atomically before anything is reissued, so a replayed or raced
// token fails with ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshValue string) (*domain.User, []string, *TokenPair, error) {
	fingerprint := auth.FingerprintRefreshToken(refreshValue)
	stored, err := s.refresh.Consume(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, nil, err
	}
	if stored.Expired(time.Now()) {
		return nil, nil, nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, nil, nil, ErrUserSuspended
	}

	held, err := s.roles.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	pair, err := s.issuePair(ctx, user.ID, primaryRole(held))
	if err != nil {
		return nil, nil, nil, err
	}
	return user, held, pair, nil
}

// Logout revokes the presented refresh credential. The access token simply
// ages out; it is never stored server-side.
func (s *AuthService) Logout(ctx context.Context, refreshValue string) error {
	if refreshValue == "" {
		return nil
	}
	return s.refresh.Delete(ctx, auth.FingerprintRefreshToken(refreshValue))
}

// TokenManager exposes the underlying token manager for the gate.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issuePair(ctx context.Context, userID int64, role string) (*TokenPair, error) {
	access, accessExp, err := s.tokenMgr.Issue(userID, role)
	if err != nil {
		return nil, err
	}

	refreshValue := auth.NewRefreshTokenValue()
	refreshExp := time.Now().Add(s.refreshTTL)
	if err := s.refresh.Save(ctx, domain.RefreshToken{
		Fingerprint: auth.FingerprintRefreshToken(refreshValue),
		UserID:      userID,
		ExpiresAt:   refreshExp,
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshValue,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func primaryRole(held []string) string {
	for _, r := range held {
		if r == domain.RoleAdmin {
			return r
		}
	}
	for _, r := range held {
		if r == domain.RoleEditor {
			return r
		}
	}
	if len(held) > 0 {
		return held[0]
	}
	return domain.RoleMember
}
