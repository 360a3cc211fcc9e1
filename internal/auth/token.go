package auth

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenService signs and verifies the HS256 access tokens carried on
// Authorization: Bearer headers. The payload claim is "userId".
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl}
}

// TokenServiceFromEnv builds the service from JWT_SECRET. A fallback secret
// keeps local development working but is loudly logged.
func TokenServiceFromEnv() *TokenService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Println("[Auth] WARNING: JWT_SECRET not set, using insecure development secret")
		secret = "dev-secret-do-not-use"
	}
	return NewTokenService([]byte(secret), 72*time.Hour)
}

func (s *TokenService) Sign(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken implements middleware.TokenVerifier.
func (s *TokenService) VerifyToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", errors.New("token missing userId claim")
	}
	return userID, nil
}
