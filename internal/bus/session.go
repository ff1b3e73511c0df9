package bus

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/filex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionSubject = "notifierctl"

// Sessions issues and verifies the tokens a control client must present.
// The secret lives only in memory, so a restart invalidates old tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret []byte, ttl time.Duration) *Sessions {
	return &Sessions{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed HS256 token. A zero ttl yields a token without expiry.
func (s *Sessions) Issue() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:  sessionSubject,
		IssuedAt: jwt.NewNumericDate(now),
		ID:       uuid.NewString(),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Verify checks signature, algorithm, subject and expiry.
func (s *Sessions) Verify(tokenString string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(sessionSubject),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

// WriteSessionFile stores token at path, readable by the owner only.
func WriteSessionFile(path, token string) error {
	if err := filex.WritePrivate(path, []byte(token)); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func ReadSessionFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
