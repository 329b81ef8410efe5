package jwttoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
	pstrings "gatekeeper/pkg/platform/strings"
)

const adminAudience = "gatekeeper-admin"

// AdminClaims are the claims of an admin API token. Subject names the operator.
type AdminClaims struct {
	Guilds []string `json:"guilds"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 admin tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// GenerateAdminToken signs a token for subject scoped to guilds.
func (s *JWTService) GenerateAdminToken(subject string, guilds []string, expiresIn time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", dErrors.New(dErrors.CodeValidation, "token subject is required")
	}
	guilds = pstrings.Compact(guilds)
	if len(guilds) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "at least one guild scope is required")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Guilds: guilds,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{adminAudience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(adminAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" || len(claims.Guilds) == 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
