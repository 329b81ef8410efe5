package jwttoken

import (
	authmw "gatekeeper/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *AdminClaims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		Subject: claims.Subject,
		Guilds:  claims.Guilds,
		JTI:     claims.ID,
	}
}

// JWTServiceAdapter lets the auth middleware validate tokens without
// depending on this package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
