// Package jwt issues and verifies the bearer tokens used by the feed API.
//
// A token is handed out on login and carries the account id and email. It is
// valid for one hour; there is no refresh flow, so an expired token means the
// client logs in again.
//
// Verification is pure: no database lookups happen here. Whether the account
// still exists is a question for the caller.
package jwt

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInvalidToken     = errors.New("jwt: invalid token")
	ErrExpiredToken     = errors.New("jwt: token has expired")
	ErrTokenNotFound    = errors.New("jwt: token not found")
	ErrInvalidClaims    = errors.New("jwt: invalid claims")
	ErrTokenNotYetValid = errors.New("jwt: token not yet valid")
)

const (
	bearerPrefix       = "Bearer "
	defaultTokenExpiry = time.Hour
)

// =============================================================================
// Claims & Identity
// =============================================================================

// Claims are the custom claims signed into every token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the actor derived from a verified token. The zero value is the
// anonymous actor.
type Identity struct {
	AccountID string
	Email     string
}

// Anonymous reports whether no credential was presented.
func (i Identity) Anonymous() bool {
	return i.AccountID == ""
}

// =============================================================================
// Token Service
// =============================================================================

// TokenService creates and validates tokens. Create one instance and share it.
type TokenService struct {
	Secret      []byte
	Issuer      string
	TokenExpiry time.Duration
	parser      *jwt.Parser
	now         func() time.Time
}

// NewTokenService reads its configuration from the environment:
//   - JWT_SECRET: signing key (a development default is used when empty)
//   - JWT_ISSUER: token issuer (default "feed-api")
func NewTokenService() *TokenService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default-feed-secret-change-in-production"
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "feed-api"
	}

	return &TokenService{
		Secret:      []byte(secret),
		Issuer:      issuer,
		TokenExpiry: defaultTokenExpiry,
		parser: jwt.NewParser(
			// Only HS256; rejects alg confusion.
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithIssuer(issuer),
		),
		now: time.Now,
	}
}

// GenerateToken signs a token for the given account.
func (s *TokenService) GenerateToken(accountID, email string) (string, error) {
	if len(s.Secret) == 0 {
		return "", fmt.Errorf("creating token: %w", errors.New("empty signing secret"))
	}

	now := s.now()
	claims := &Claims{
		UserID: accountID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenExpiry)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("creating token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and returns its claims.
func (s *TokenService) ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenNotFound
	}

	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		return nil, convertError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// Verify derives the actor from an Authorization header value.
//
// A missing header, or one that is not a bearer credential, yields the
// anonymous identity and no error; routes decide whether anonymous is
// acceptable. A bearer token that does not verify is an error.
func (s *TokenService) Verify(authHeader string) (Identity, error) {
	if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
		return Identity{}, nil
	}

	claims, err := s.ParseToken(strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix)))
	if err != nil {
		return Identity{}, err
	}

	return Identity{AccountID: claims.UserID, Email: claims.Email}, nil
}

// convertError transforms jwt library errors into package errors.
func convertError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrTokenNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: token is malformed", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature is invalid", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
