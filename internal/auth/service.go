package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Sentinel errors for token operations.
var (
	// ErrInvalidAPIKey is returned when the presented API key does not match.
	ErrInvalidAPIKey = errors.New("auth: invalid api key")

	// ErrTokenInvalid is returned when a token fails signature, expiry,
	// or claim checks.
	ErrTokenInvalid = errors.New("auth: invalid token")
)

const defaultTTLMinutes = 15

// Claims extends the JWT registered claims with a session id that is
// carried into request logs.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Service exchanges the configured API key for signed access tokens and
// verifies presented tokens. It holds no state beyond its configuration.
type Service struct {
	apiKey []byte
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service. A non-positive ttlMinutes falls
// back to 15 minutes.
func NewService(apiKey, secret string, ttlMinutes int) *Service {
	if ttlMinutes <= 0 {
		ttlMinutes = defaultTTLMinutes
	}
	return &Service{
		apiKey: []byte(apiKey),
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
	}
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Exchange validates the presented API key in constant time and issues
// a signed access token, returning the token and its expiry.
func (s *Service) Exchange(apiKey string) (string, time.Time, error) {
	if len(s.apiKey) == 0 || subtle.ConstantTimeCompare([]byte(apiKey), s.apiKey) != 1 {
		return "", time.Time{}, ErrInvalidAPIKey
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "picklight-core",
			Subject:   "api-client",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		SessionID: uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates and parses an access token, returning its claims.
// It checks the signature, expiry, and required fields.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
