package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 24 * time.Hour

// Domain errors for device authentication.
var (
	ErrEmptySigningKey = errors.New("signing key is empty")
	ErrInvalidToken    = errors.New("invalid token")
)

// DeviceClaims identifies the device that sends alarm frames.
type DeviceClaims struct {
	jwt.RegisteredClaims
	Serial string `json:"serial"`
}

// TokenService issues and verifies HS256 device tokens with a shared key.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenService(key string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrEmptySigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{key: []byte(key), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for the device serial number.
func (s *TokenService) Issue(serial string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   serial,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Serial: serial,
	})
	return token.SignedString(s.key)
}

// Parse verifies token and returns the device serial it was issued for.
func (s *TokenService) Parse(accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid || claims.Serial == "" {
		return "", ErrInvalidToken
	}
	return claims.Serial, nil
}
