package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadToken = errors.New("invalid session token")

type sessionClaims struct {
	Name   string `json:"name,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies short-lived player session tokens. A token is
// minted only after initData verification, so holding one is proof the
// identity channel vouched for the player.
type Sessions struct {
	Secret []byte
	TTL    time.Duration
}

func (s *Sessions) Issue(identity *Identity, now time.Time) (string, error) {
	if identity == nil {
		return "", ErrBadToken
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := sessionClaims{
		Name: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.PlayerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if identity.ChatID != nil {
		claims.ChatID = strconv.FormatInt(*identity.ChatID, 10)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

func (s *Sessions) Verify(tokenString string) (*Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrBadToken
	}
	identity := &Identity{
		PlayerID:    claims.Subject,
		DisplayName: claims.Name,
	}
	if claims.ChatID != "" {
		if id, err := strconv.ParseInt(claims.ChatID, 10, 64); err == nil {
			identity.ChatID = &id
		}
	}
	return identity, nil
}
