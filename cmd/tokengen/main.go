// Package main provides a CLI tool for minting bearer tokens for local
// development. Tokens are signed with the dev signing key and will NOT work
// against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Matches config.go when JWT_SIGNING_KEY is not set.
const devSigningKey = "dev-secret-key-change-in-production"

type tokenOutput struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	ExpiresIn string `json:"expires_in"`
	Usage     string `json:"usage"`
}

func main() {
	userID := flag.String("user", "ADMIN001", "user ID to embed as the token subject")
	key := flag.String("key", devSigningKey, "HMAC signing key")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   *userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
	})
	signed, err := token.SignedString([]byte(*key))
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}

	out := tokenOutput{
		Token:     signed,
		UserID:    *userID,
		ExpiresIn: ttl.String(),
		Usage:     fmt.Sprintf(`curl -H "Authorization: Bearer %s" http://localhost:8080/registration-requests`, signed),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
