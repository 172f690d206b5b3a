package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "homebites"

// ErrInvalidToken is the only error Verify returns. It deliberately does not
// say whether the signature, structure or expiry was at fault.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and verifies HS256 session tokens. It holds no state
// beyond its configuration.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret []byte, defaultTTL time.Duration) *TokenService {
	return &TokenService{secret: secret, defaultTTL: defaultTTL, now: time.Now}
}

// WithClock returns a copy of the service that reads time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

func (s *TokenService) DefaultTTL() time.Duration { return s.defaultTTL }

// Issue signs a token for subjectID using the configured default lifetime.
func (s *TokenService) Issue(subjectID uint) (string, time.Time, error) {
	return s.IssueWithTTL(subjectID, s.defaultTTL)
}

// IssueWithTTL signs a token that expires ttl from now. A non-positive ttl
// yields a token that is already expired.
func (s *TokenService) IssueWithTTL(subjectID uint, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(subjectID), 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify returns the subject id embedded in a valid, unexpired token.
func (s *TokenService) Verify(tokenString string) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}
