package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"guildhall-backend/shared/config"
)

// Claims bind a relayed call to its true sender and exactly one
// organization.
type Claims struct {
	Sender         string `json:"sender"`
	OrganizationID string `json:"organization_id"`
	jwt.RegisteredClaims
}

var sessionSecret = []byte(getSessionSecret())

func getSessionSecret() string {
	cfg := config.GetConfig()
	if cfg.SessionSecret == "" {
		return "fallback-secret-key-for-development"
	}
	return cfg.SessionSecret
}

// GetSessionTTL gets the session token lifetime from config
func GetSessionTTL() time.Duration {
	cfg := config.GetConfig()
	minutes := cfg.GetSessionTTLMinutes()
	return time.Duration(minutes) * time.Minute
}

// GenerateSessionToken issues a token a relayer can submit on behalf
// of sender, scoped to one organization.
func GenerateSessionToken(sender, organizationID string) (string, error) {
	ttl := GetSessionTTL()

	claims := Claims{
		Sender:         sender,
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sessionSecret)
}

// ValidateSessionToken verifies a session token and returns its claims
func ValidateSessionToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return sessionSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Sender == "" || claims.OrganizationID == "" {
			return nil, errors.New("session token missing sender or organization")
		}
		return claims, nil
	}

	return nil, errors.New("invalid session token")
}
