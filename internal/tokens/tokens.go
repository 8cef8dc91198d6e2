// Package tokens signs and verifies the two bearer-credential classes.
//
// A compromised short token cannot mint new short tokens: only the long
// token, signed with its own secret and exchanged rarely, is accepted by
// the refresh flow.
package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"school-api/internal/roles"
)

const (
	DefaultLongTTL  = 3 * 365 * 24 * time.Hour
	DefaultShortTTL = 365 * 24 * time.Hour
)

// ErrInvalidToken covers malformed input, signature mismatch, and expiry.
// Verification failure is a normal outcome for attacker-controlled input.
var ErrInvalidToken = errors.New("invalid or expired token")

type Service struct {
	LongSecret  []byte
	ShortSecret []byte
	LongTTL     time.Duration
	ShortTTL    time.Duration
}

func NewService(longSecret, shortSecret []byte) *Service {
	return &Service{
		LongSecret:  longSecret,
		ShortSecret: shortSecret,
		LongTTL:     DefaultLongTTL,
		ShortTTL:    DefaultShortTTL,
	}
}

func (s *Service) IssueLong(userID, userKey string, role roles.Role, schoolID string) (string, error) {
	claims := LongClaims{
		UserKey:  userKey,
		Role:     role.String(),
		SchoolID: schoolID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.LongTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.LongSecret)
}

func (s *Service) IssueShort(userID, userKey string, role roles.Role, schoolID, sessionID, deviceID string) (string, error) {
	claims := ShortClaims{
		UserKey:   userKey,
		Role:      role.String(),
		SchoolID:  schoolID,
		SessionID: sessionID,
		DeviceID:  deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ShortTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.ShortSecret)
}

func (s *Service) VerifyLong(tokenStr string) (*LongClaims, error) {
	var claims LongClaims
	if err := verify(tokenStr, &claims, s.LongSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (s *Service) VerifyShort(tokenStr string) (*ShortClaims, error) {
	var claims ShortClaims
	if err := verify(tokenStr, &claims, s.ShortSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func verify(tokenStr string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return ErrInvalidToken
	}
	return nil
}
