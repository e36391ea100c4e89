package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore resolves opaque bearer tokens to user ids. Tokens are issued by
// an external identity provider and mirrored into Redis; this service only
// looks them up.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue registers a fresh token for the given user and returns it. Used by
// tests and the seed tooling; production tokens arrive pre-provisioned.
func (ts *TokenStore) Issue(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("shared: user id required")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := ts.client.Set(ctx, ts.key(token), userID, ts.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a token to its user id, returning ErrTokenInvalid when the
// token is unknown or expired.
func (ts *TokenStore) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenInvalid
	}
	userID, err := ts.client.Get(ctx, ts.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenInvalid
		}
		return "", err
	}
	return userID, nil
}

// Revoke deletes a token.
func (ts *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return ts.client.Del(ctx, ts.key(token)).Err()
}

func (ts *TokenStore) key(token string) string {
	return "firepit:token:" + token
}

// BearerToken extracts the bearer token from an Authorization header,
// returning the empty string when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
