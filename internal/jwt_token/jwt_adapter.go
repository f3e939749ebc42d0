package jwttoken

import (
	"plebis/internal/platform/middleware"
)

// JWTServiceAdapter bridges the JWT service into the middleware-facing
// validator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserIDInt()
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:         userID,
		PaperAuthority: claims.PaperAuthority,
		Admin:          claims.Admin,
	}, nil
}
