package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired means the signature was fine but the token is past 'exp'.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed tokens, bad signatures and bad claims.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the two kinds of tokens. Access and
// refresh tokens use different secrets so one can never stand in for the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager builds a TokenManager.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// GenerateAccessToken creates a short-lived token for a given user ID.
func (m *TokenManager) GenerateAccessToken(userID int64) (string, error) {
	token, _, err := m.sign(userID, m.accessSecret, m.accessTTL)
	return token, err
}

// GenerateRefreshToken creates a long-lived token and returns its expiry so
// the caller can persist it.
func (m *TokenManager) GenerateRefreshToken(userID int64) (string, time.Time, error) {
	return m.sign(userID, m.refreshSecret, m.refreshTTL)
}

// ValidateAccessToken returns the user ID of a valid access token.
func (m *TokenManager) ValidateAccessToken(tokenString string) (int64, error) {
	return m.validate(tokenString, m.accessSecret)
}

// ValidateRefreshToken checks signature and expiry only. Whether the token
// is still persisted is the caller's business.
func (m *TokenManager) ValidateRefreshToken(tokenString string) (int64, error) {
	return m.validate(tokenString, m.refreshSecret)
}

func (m *TokenManager) sign(userID int64, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) validate(tokenString string, secret []byte) (int64, error) {
	if tokenString == "" {
		return 0, ErrTokenInvalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return 0, ErrTokenInvalid
	}
	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}

// HashToken is the storage key of a refresh token: hex SHA-256.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
