// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing.
package middleware

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
)

// PurposePasswordReset marks tokens mailed by the forgot-password flow.
const PurposePasswordReset = "password_reset"

// ResetTTL is how long a password reset link stays valid.
const ResetTTL = time.Hour

// PasswordFingerprint derives a short, stable tag from a password hash.
// A reset token carries the fingerprint of the hash it was issued against,
// so once the password changes every older reset token stops working.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return fmt.Sprintf("%x", sum[:8])
}

// GenerateResetToken creates a single-use password reset token.
func GenerateResetToken(user *models.User, secret string) (string, error) {
	now := time.Now()
	return sign(JWTClaims{
		UserID:      user.ID,
		Email:       user.Email,
		Purpose:     PurposePasswordReset,
		Fingerprint: PasswordFingerprint(user.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}, secret)
}

// ParseResetToken validates a reset token's signature, expiry and purpose.
// The caller must still compare Fingerprint against the user's current hash.
func ParseResetToken(tokenString, secret string) (*JWTClaims, error) {
	claims, err := parse(tokenString, secret)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposePasswordReset {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
