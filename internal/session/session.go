package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orgball2608/social-feed-bot/pkg/errors"
	"github.com/orgball2608/social-feed-bot/pkg/logger"
)

// Claims is what the feed API puts into its bearer tokens.
type Claims struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (c Claims) IssuedTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// Credential is the viewer identity handed to the hydrator and composer.
// The zero value is the anonymous viewer.
type Credential struct {
	Token  string
	Claims Claims
}

func (c Credential) IsAnonymous() bool {
	return c.Token == ""
}

// Decode reads the claims without verifying the signature. The client never
// holds the signing key; the API verifies the token on every request.
func Decode(token string) (Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Claims{}, errors.WrapWithCode(errors.ErrUnauthorized, errors.CodeUnauthorized, "empty token")
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, errors.WrapWithCode(
			fmt.Errorf("%w: %v", errors.ErrInvalidInput, err),
			errors.CodeUnauthorized,
			"malformed token",
		)
	}
	return claims, nil
}

// FromToken builds a Credential. A missing or malformed token yields the
// anonymous viewer instead of an error.
func FromToken(token string, log logger.Logger) Credential {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Credential{}
	}
	claims, err := Decode(token)
	if err != nil {
		log.Warn("Ignoring malformed credential, continuing as anonymous viewer", "error", err)
		return Credential{}
	}
	return Credential{Token: token, Claims: claims}
}
