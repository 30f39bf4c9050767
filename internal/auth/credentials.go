package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/config"
)

// placeholder hash compared against when the email does not match, so both
// failure paths cost one bcrypt comparison.
var placeholderHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcrypt.MinCost)

// HashPassword returns the bcrypt hash stored in PORTFOLIO_AUTH_ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticator checks the single admin account and issues tokens.
type Authenticator struct {
	email  string
	hash   []byte
	tokens *TokenManager
}

func NewAuthenticator(cfg config.AuthConfig, tokens *TokenManager) *Authenticator {
	return &Authenticator{
		email:  strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		hash:   []byte(cfg.AdminPasswordHash),
		tokens: tokens,
	}
}

// Login verifies the credentials and returns a signed token.
func (a *Authenticator) Login(email, password string) (string, error) {
	if a.email == "" || len(a.hash) == 0 {
		return "", apperrors.ErrUnauthorized
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.email)) == 1
	hash := a.hash
	if !emailOK {
		hash = placeholderHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !emailOK {
		return "", apperrors.ErrUnauthorized
	}

	token, _, err := a.tokens.GenerateToken(a.email)
	if err != nil {
		return "", apperrors.Internal(err, "Failed to generate token")
	}
	return token, nil
}
