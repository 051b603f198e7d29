package jwtauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"chainalert/internal/platform/middleware"
	dErrors "chainalert/pkg/domain-errors"
)

// Claims represents the JWT claims for device access tokens. The device ID is
// the raw anonymous identifier minted at onboarding; it never leaves the token
// and the backend only ever derives one-way hashes from it.
type Claims struct {
	DeviceID    string `json:"device_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey string, issuer string, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken mints a signed token for an onboarded device.
func (s *Service) GenerateAccessToken(deviceID, displayName string, expiresIn time.Duration) (string, error) {
	if deviceID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "device ID is required")
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		DeviceID:    deviceID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken parses and validates a token, returning middleware claims.
func (s *Service) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnauthorized, "invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.DeviceID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing device identity")
	}
	return &middleware.TokenClaims{
		DeviceID:    claims.DeviceID,
		DisplayName: claims.DisplayName,
	}, nil
}
