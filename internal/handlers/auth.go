// auth.go handles user authentication HTTP endpoints.
package handlers

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shimizu-Technology/result-analyser-api/internal/database"
	"github.com/Shimizu-Technology/result-analyser-api/internal/middleware"
	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/mailer"
)

// forgotPasswordMessage is returned whether or not the account exists, so the
// endpoint can't be used to discover registered emails.
const forgotPasswordMessage = "If an account exists for that email, a reset link has been sent."

// Register creates a new user account.
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request", "Email, password (min 8 chars), and name are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		errorJSON(c, http.StatusInternalServerError, "server_error", "Failed to create account")
		return
	}

	user := &models.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
	}

	if err := h.DB.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			errorJSON(c, http.StatusConflict, "email_taken", "An account with this email already exists")
			return
		}
		log.Printf("❌ Failed to create user: %v", err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to create account")
		return
	}

	token, err := middleware.GenerateJWT(user, h.JWTSecret)
	if err != nil {
		log.Printf("❌ Failed to generate token: %v", err)
		errorJSON(c, http.StatusInternalServerError, "token_error", "Account created but failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{
		Token: token,
		User:  *user,
	})
}

// Login authenticates a user and returns a JWT token.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request", "Email and password are required")
		return
	}

	user, err := h.DB.GetUserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		errorJSON(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errorJSON(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	token, err := middleware.GenerateJWT(user, h.JWTSecret)
	if err != nil {
		log.Printf("❌ Failed to generate token: %v", err)
		errorJSON(c, http.StatusInternalServerError, "token_error", "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  *user,
	})
}

// GetMe returns the current authenticated user.
// GET /api/v1/auth/me
func (h *Handler) GetMe(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		errorJSON(c, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, user)
}

// RefreshToken issues a new JWT token for an authenticated user.
// POST /api/v1/auth/refresh
func (h *Handler) RefreshToken(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		errorJSON(c, http.StatusUnauthorized, "unauthorized", "Not authenticated")
		return
	}

	token, err := middleware.GenerateJWT(user, h.JWTSecret)
	if err != nil {
		log.Printf("❌ Failed to refresh token: %v", err)
		errorJSON(c, http.StatusInternalServerError, "token_error", "Failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  *user,
	})
}

// ForgotPassword mails a password reset link.
// POST /api/v1/auth/forgot-password
//
// Always answers 202 with the same message. Lookup and delivery failures are
// logged, never reported to the caller.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request", "A valid email is required")
		return
	}

	accepted := models.MessageResponse{Message: forgotPasswordMessage}

	user, err := h.DB.GetUserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("❌ Forgot password lookup failed: %v", err)
		}
		c.JSON(http.StatusAccepted, accepted)
		return
	}

	token, err := middleware.GenerateResetToken(user, h.JWTSecret)
	if err != nil {
		log.Printf("❌ Failed to generate reset token: %v", err)
		c.JSON(http.StatusAccepted, accepted)
		return
	}

	link, err := mailer.ResetLink(h.ResetURLBase, token)
	if err != nil {
		log.Printf("❌ %v", err)
		c.JSON(http.StatusAccepted, accepted)
		return
	}

	if err := h.Mailer.SendPasswordReset(c.Request.Context(), user.Email, user.Name, link); err != nil {
		log.Printf("❌ Failed to send reset mail to %s: %v", user.Email, err)
	}

	c.JSON(http.StatusAccepted, accepted)
}

// ResetPassword sets a new password using a mailed reset token.
// POST /api/v1/auth/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request", "Token and password (min 8 chars) are required")
		return
	}

	claims, err := middleware.ParseResetToken(req.Token, h.JWTSecret)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_token", "Reset link is invalid or has expired")
		return
	}

	user, err := h.DB.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_token", "Reset link is invalid or has expired")
		return
	}

	// A changed password hash means this link was already used (or superseded).
	current := middleware.PasswordFingerprint(user.PasswordHash)
	if subtle.ConstantTimeCompare([]byte(current), []byte(claims.Fingerprint)) != 1 {
		errorJSON(c, http.StatusBadRequest, "invalid_token", "Reset link has already been used")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		errorJSON(c, http.StatusInternalServerError, "server_error", "Failed to reset password")
		return
	}

	if err := h.DB.UpdateUserPassword(c.Request.Context(), user.ID, string(hash)); err != nil {
		log.Printf("❌ Failed to update password for %s: %v", user.ID, err)
		errorJSON(c, http.StatusInternalServerError, "database_error", "Failed to reset password")
		return
	}

	log.Printf("🔑 Password reset for user %s", user.ID)
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password updated. You can now log in."})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
