package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"taskflow/internal/apperrors"
	"taskflow/internal/service"
)

const tokenCookieMaxAge = 7 * 24 * 3600

// AuthController handles registration, login and email verification.
type AuthController struct {
	svc *service.Auth
}

// NewAuthController wires the auth controller.
func NewAuthController(svc *service.Auth) *AuthController {
	return &AuthController{svc: svc}
}

// Register handles POST /api/auth/register.
func (ac *AuthController) Register(c *gin.Context) {
	var input service.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := ac.svc.Register(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	setTokenCookie(c, result.Token)
	respondData(c, http.StatusCreated, result)
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := ac.svc.Login(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	setTokenCookie(c, result.Token)
	respondData(c, http.StatusOK, result)
}

// Logout handles POST /api/auth/logout: clears the token cookie.
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", false, true)
	respondMessage(c, http.StatusOK, "Logged out successfully")
}

// Me handles GET /api/auth/me.
func (ac *AuthController) Me(c *gin.Context) {
	profile, err := ac.svc.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/auth/profile.
func (ac *AuthController) UpdateProfile(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required,max=100"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	profile, err := ac.svc.UpdateProfile(c.Request.Context(), currentUserID(c), input.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, profile)
}

// VerifyEmail handles GET /api/auth/verify-email?token=...
func (ac *AuthController) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, apperrors.Validation("Verification token is required"))
		return
	}
	message, err := ac.svc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, message)
}

// ResendVerification handles POST /api/auth/resend-verification.
func (ac *AuthController) ResendVerification(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	message, err := ac.svc.ResendVerification(c.Request.Context(), input.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, message)
}

// setTokenCookie mirrors the token into a cookie so the WebSocket
// handshake cookie fallback works for browser clients.
func setTokenCookie(c *gin.Context, token string) {
	c.SetCookie("token", token, tokenCookieMaxAge, "/", "", false, true)
}
