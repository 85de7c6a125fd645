package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feedthegoat/content-service/internal/domain"
)

// ErrRefreshTokenNotFound indicates an unknown, already-rotated, or expired
// refresh credential.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository stores refresh-token fingerprints. Rotation must be
// single-use: consuming a fingerprint removes it atomically so a replayed
// token fails even when two refresh calls race.
type RefreshTokenRepository interface {
	Save(ctx context.Context, token domain.RefreshToken) error
	Consume(ctx context.Context, fingerprint string) (*domain.RefreshToken, error)
	Delete(ctx context.Context, fingerprint string) error
}

type refreshTokenRepository struct {
	client *redis.Client
}

// NewRefreshTokenRepository returns a Redis-backed implementation. The key
// TTL mirrors the token expiry, so expired tokens vanish without a sweeper.
func NewRefreshTokenRepository(client *redis.Client) RefreshTokenRepository {
	return &refreshTokenRepository{client: client}
}

func tokenKey(fingerprint string) string {
	return "refresh:" + fingerprint
}

func (r *refreshTokenRepository) Save(ctx context.Context, token domain.RefreshToken) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return errors.New("refresh token already expired")
	}
	value := strconv.FormatInt(token.UserID, 10) + "|" + strconv.FormatInt(token.ExpiresAt.Unix(), 10)
	return r.client.Set(ctx, tokenKey(token.Fingerprint), value, ttl).Err()
}

// Consume fetches and deletes the fingerprint in one round trip via GETDEL.
func (r *refreshTokenRepository) Consume(ctx context.Context, fingerprint string) (*domain.RefreshToken, error) {
	value, err := r.client.GetDel(ctx, tokenKey(fingerprint)).Result()
	if err == redis.Nil {
		return nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return parseTokenValue(fingerprint, value)
}

func (r *refreshTokenRepository) Delete(ctx context.Context, fingerprint string) error {
	return r.client.Del(ctx, tokenKey(fingerprint)).Err()
}

func parseTokenValue(fingerprint, value string) (*domain.RefreshToken, error) {
	idPart, expPart, found := strings.Cut(value, "|")
	if !found {
		return nil, ErrRefreshTokenNotFound
	}
	userID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil, ErrRefreshTokenNotFound
	}
	expiresAt, err := strconv.ParseInt(expPart, 10, 64)
	if err != nil {
		return nil, ErrRefreshTokenNotFound
	}
	return &domain.RefreshToken{
		Fingerprint: fingerprint,
		UserID:      userID,
		ExpiresAt:   time.Unix(expiresAt, 0),
	}, nil
}
