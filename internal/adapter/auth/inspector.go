package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// Session is the identity extracted from a valid session token.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Inspector turns a raw session token into an identity. It only verifies and
// decodes tokens issued elsewhere; it does not implement authentication.
type Inspector struct {
	secret []byte
}

func NewInspector(secret string) (*Inspector, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &Inspector{secret: []byte(secret)}, nil
}

func (i *Inspector) Inspect(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user identifier claim", ErrInvalidToken)
	}

	session := &Session{UserID: userID, Token: tokenString}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	return session, nil
}
