// Package adminauth establishes the administrative caller predicate. An
// operator exchanges the deployment's admin API key for a short-lived signed
// token; the HTTP layer validates that token and resolves it to the admin
// identity the engine was configured with.
package adminauth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	id "registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
)

var (
	ErrBadAPIKey    = dErrors.New(dErrors.CodeUnauthorized, "admin api key mismatch")
	ErrTokenExpired = dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	ErrInvalidToken = dErrors.New(dErrors.CodeUnauthorized, "invalid token")
)

// Claims carries the administrative identity inside the token.
type Claims struct {
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// Service issues and validates admin tokens.
type Service struct {
	signingKey []byte
	keyHash    []byte
	admin      id.AccountID
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

// New builds the service. keyHash is the bcrypt hash of the admin API key;
// the plaintext key never lives in configuration.
func New(signingKey string, keyHash []byte, admin id.AccountID, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		keyHash:    keyHash,
		admin:      admin,
		issuer:     "registrar",
		audience:   "registrar-admin",
		tokenTTL:   tokenTTL,
	}
}

// HashAPIKey produces the stored form of an admin API key.
func HashAPIKey(apiKey string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
}

// IssueToken exchanges the admin API key for a signed token.
func (s *Service) IssueToken(_ context.Context, apiKey string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.keyHash, []byte(apiKey)); err != nil {
		return "", ErrBadAPIKey
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Account: s.admin.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken checks the signature and liveness of a token and returns the
// administrative identity it asserts.
func (s *Service) ValidateToken(tokenString string) (id.AccountID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.NilAccount, ErrTokenExpired
		}
		return id.NilAccount, ErrInvalidToken
	}
	if !parsed.Valid {
		return id.NilAccount, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return id.NilAccount, ErrInvalidToken
	}
	acct, err := id.ParseAccountID(claims.Account)
	if err != nil || acct != s.admin {
		return id.NilAccount, ErrInvalidToken
	}
	return acct, nil
}
