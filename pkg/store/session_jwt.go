package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

const (
	DefaultSessionTTL  = 7 * 24 * time.Hour
	defaultJWTIssuer   = "career-bot"
	minJWTSecretLength = 16
)

var (
	defaultJWTLeeway = 30 * time.Second

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// JWTOptions configures JWT claim validation behavior.
type JWTOptions struct {
	Issuer string
	Leeway time.Duration
}

// sessionClaims is the token payload: userId and email plus registered claims.
type sessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTSessionStore issues and validates HS256 JWT session tokens.
type JWTSessionStore struct {
	secret  []byte
	ttl     time.Duration
	revoker TokenRevoker
	issuer  string
	leeway  time.Duration
}

// NewJWTSessionStore builds an HS256 session store. A nil revoker disables sign-out.
func NewJWTSessionStore(secret string, ttl time.Duration, revoker TokenRevoker, opts JWTOptions) (*JWTSessionStore, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < minJWTSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minJWTSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	opts = normalizeJWTOptions(opts)
	return &JWTSessionStore{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		issuer:  opts.Issuer,
		leeway:  opts.Leeway,
	}, nil
}

// NewSession creates a signed JWT for the user.
func (s *JWTSessionStore) NewSession(user domain.User) (string, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", errors.New("session user id required")
	}
	now := time.Now().UTC()
	claims := sessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        randomHexID(12),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseSession validates a JWT and returns its claims.
func (s *JWTSessionStore) ParseSession(token string) (SessionClaims, error) {
	claims, err := s.parseAndVerify(token)
	if err != nil {
		return SessionClaims{}, err
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(claims.ID)
		if err != nil {
			return SessionClaims{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return SessionClaims{}, ErrTokenRevoked
		}
	}
	out := SessionClaims{
		UserID:  claims.UserID,
		Email:   claims.Email,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}

// DeleteSession revokes the token until it expires. Invalid tokens are ignored.
func (s *JWTSessionStore) DeleteSession(token string) error {
	if s.revoker == nil {
		return nil
	}
	claims, err := s.parseAndVerify(token)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *JWTSessionStore) parseAndVerify(token string) (sessionClaims, error) {
	claims := sessionClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithLeeway(s.leeway),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = ErrInvalidToken
		}
		return claims, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.ID) == "" {
		return claims, fmt.Errorf("%w: jti missing", ErrInvalidToken)
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.UserID != claims.Subject {
		return claims, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	return claims, nil
}

func randomHexID(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}

func normalizeJWTOptions(opts JWTOptions) JWTOptions {
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	if opts.Issuer == "" {
		opts.Issuer = defaultJWTIssuer
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultJWTLeeway
	}
	return opts
}
