package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/quizdesk/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// VerifyPIN reports whether input unlocks secret. A secret that looks like a
// bcrypt hash is compared with bcrypt; anything else in constant time.
func VerifyPIN(input, secret string) bool {
	if secret == "" || input == "" {
		return false
	}
	if isBcryptHash(secret) {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(secret)) == 1
}

// HashPIN returns a bcrypt hash usable as TEACHER_PIN.
func HashPIN(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("empty PIN")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(hash), err
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

// Claims is carried by tokens issued after a successful PIN unlock.
type Claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin"`
}

// AuthService turns the shared teacher PIN into short-lived admin tokens.
type AuthService struct {
	pin    string
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		pin:    cfg.TeacherPIN,
		secret: []byte(cfg.JWTSecret),
		expiry: cfg.JWTExpiry,
		now:    time.Now,
	}
}

// Unlock checks pin and issues an admin token.
func (s *AuthService) Unlock(pin string) (string, time.Time, error) {
	if !VerifyPIN(pin, s.pin) {
		return "", time.Time{}, ErrInvalidPIN
	}

	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   "teacher",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Admin: true,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if !claims.Admin {
		return nil, errors.New("token lacks admin capability")
	}
	return claims, nil
}
