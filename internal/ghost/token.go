package ghost

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 5 * time.Minute

// adminKey is a Ghost Admin API key split into its id and decoded secret.
type adminKey struct {
	id     string
	secret []byte
}

func parseAdminKey(raw string) (adminKey, error) {
	id, hexSecret, ok := strings.Cut(raw, ":")
	if !ok || id == "" || hexSecret == "" {
		return adminKey{}, fmt.Errorf("admin API key must have the form {id}:{secret}")
	}
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return adminKey{}, fmt.Errorf("decode admin API key secret: %w", err)
	}
	return adminKey{id: id, secret: secret}, nil
}

// sign issues a short-lived admin token for the Authorization header.
func (k adminKey) sign(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{"/admin/"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = k.id
	return token.SignedString(k.secret)
}
