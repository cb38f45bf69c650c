// auth_test.go covers password reset tokens.
//
// Go Pattern: Reset tokens are security-critical. If the purpose or
// fingerprint checks regress, a mailed link becomes a login token or a
// reusable one. Tests catch that early.
package middleware

import (
	"errors"
	"testing"

	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
)

func TestPasswordFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		if PasswordFingerprint("$2a$10$abc") != PasswordFingerprint("$2a$10$abc") {
			t.Error("PasswordFingerprint is not deterministic")
		}
	})

	t.Run("different hashes different fingerprints", func(t *testing.T) {
		if PasswordFingerprint("$2a$10$one") == PasswordFingerprint("$2a$10$two") {
			t.Error("PasswordFingerprint produced the same value for different hashes")
		}
	})

	t.Run("output length", func(t *testing.T) {
		if got := len(PasswordFingerprint("anything")); got != 16 {
			t.Errorf("PasswordFingerprint length = %d, want 16", got)
		}
	})
}

func TestResetToken(t *testing.T) {
	const secret = "test-secret"
	user := &models.User{ID: "u1", Email: "a@example.com", PasswordHash: "$2a$10$current"}

	token, err := GenerateResetToken(user, secret)
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		claims, err := ParseResetToken(token, secret)
		if err != nil {
			t.Fatalf("ParseResetToken() error = %v", err)
		}
		if claims.UserID != "u1" || claims.Fingerprint != PasswordFingerprint(user.PasswordHash) {
			t.Errorf("claims = %+v", claims)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := ParseResetToken(token, "other-secret"); err == nil {
			t.Error("expected an error for a token signed with another secret")
		}
	})

	t.Run("not usable as a session", func(t *testing.T) {
		if _, err := ParseJWT(token, secret); !errors.Is(err, ErrWrongPurpose) {
			t.Errorf("ParseJWT() error = %v, want ErrWrongPurpose", err)
		}
	})

	t.Run("session token is not a reset token", func(t *testing.T) {
		session, err := GenerateJWT(user, secret)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseResetToken(session, secret); !errors.Is(err, ErrWrongPurpose) {
			t.Errorf("ParseResetToken() error = %v, want ErrWrongPurpose", err)
		}
	})
}
