package core

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every rejection reason: bad signature, malformed
// structure, unexpected signing method, or expiry. Callers never learn which.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies signed access tokens. Tokens are stateless:
// nothing is stored server-side and there is no revocation before expiry.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenService(signingKey string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenService{signingKey: []byte(signingKey), ttl: ttl}
}

// Issue signs a token whose subject is the user id, valid for the configured TTL.
func (s *TokenService) Issue(userID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	})
	return token.SignedString(s.signingKey)
}

// Verify checks signature and expiry and returns the subject user id.
// No database round trip happens here; the id is trusted as-is.
func (s *TokenService) Verify(tokenString string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
