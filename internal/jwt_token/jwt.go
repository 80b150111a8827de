package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"organlink/internal/platform/middleware"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
)

// Claims represents the JWT claims for hospital access tokens.
type Claims struct {
	HospitalID string `json:"hospital_id"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation for hospital callers.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateHospitalToken issues a token scoped to one hospital. Token issuance
// lives with the identity collaborator in production; this helper exists for
// development and tests.
func (s *JWTService) GenerateHospitalToken(hospitalID id.HospitalID, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		HospitalID: hospitalID.String(),
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

// ValidateToken parses and validates a hospital token, returning middleware
// claims for context injection.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.HospitalClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	hospitalID, err := id.ParseHospitalID(claims.HospitalID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing hospital claim")
	}

	return &middleware.HospitalClaims{HospitalID: hospitalID}, nil
}
