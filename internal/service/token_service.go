package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/coaching-notes-api/internal/models"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
)

// TokenService validates access tokens minted by the identity provider.
// The engine never issues tokens itself.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs the validator.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing subject")
	}
	return claims, nil
}
