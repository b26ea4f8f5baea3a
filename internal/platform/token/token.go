// Package token issues and validates the bearer tokens used by the admin
// API. Tokens are HS256 JWTs carrying the acting administrator or service
// account identity.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"certrail/internal/platform/middleware"
	dErrors "certrail/pkg/domain-errors"
)

// Claims represents the JWT claims for admin API tokens.
type Claims struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Credential is a service-account login: the secret is stored only as a
// bcrypt hash.
type Credential struct {
	ClientID   string
	SecretHash string
	Role       string
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey  []byte
	issuer      string
	credentials map[string]Credential
}

func NewService(signingKey string, issuer string, creds ...Credential) *Service {
	byID := make(map[string]Credential, len(creds))
	for _, c := range creds {
		byID[c.ClientID] = c
	}
	return &Service{
		signingKey:  []byte(signingKey),
		issuer:      issuer,
		credentials: byID,
	}
}

// Exchange verifies a client secret and returns a signed token for the
// service account. Unknown clients and bad secrets both come back as
// unauthorized so callers cannot probe for valid client IDs.
func (s *Service) Exchange(clientID, secret string, expiresIn time.Duration) (string, error) {
	cred, ok := s.credentials[clientID]
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials")
	}
	if err := VerifySecret(secret, cred.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials")
		}
		return "", err
	}
	return s.GenerateToken(clientID, cred.Role, expiresIn)
}

// GenerateToken signs a token for the given actor.
func (s *Service) GenerateToken(actorID, role string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorID: actorID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning middleware claims.
func (s *Service) ValidateToken(tokenString string) (*middleware.Claims, error) {
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
	return &middleware.Claims{ActorID: claims.ActorID, Role: claims.Role}, nil
}
