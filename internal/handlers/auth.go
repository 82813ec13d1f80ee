package handlers

import (
	"github.com/gin-gonic/gin"

	"sipitali-server/internal/config"
	"sipitali-server/internal/services"
	"sipitali-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Auth *services.AuthService
	Cfg  *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, Cfg: cfg}
}

// RefreshTokenRequest carries a refresh token when no cookie is present.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetCookie(
		refreshCookie,
		token,
		maxAge,
		"/",
		"",
		h.Cfg.IsProduction(),
		true,
	)
}

// Register handles self-registration. The new account is signed in immediately.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !utils.BindJSON(c, &req) {
		return
	}

	result, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.Cfg.JWTRefreshExpirationHours*60*60)
	utils.Created(c, "User registered successfully", result)
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if !utils.BindJSON(c, &req) {
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.Cfg.JWTRefreshExpirationHours*60*60)
	utils.Success(c, "Login successful", result)
}

// RefreshToken rotates a refresh token taken from the cookie or the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindJSON(c, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	result, err := h.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.Cfg.JWTRefreshExpirationHours*60*60)
	utils.Success(c, "Access token refreshed successfully", result)
}

// Logout revokes the refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindJSON(c, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Logout successful", nil)
}

// GetMe returns the authenticated user's profile.
func (h *AuthHandler) GetMe(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.Auth.Me(c.Request.Context(), cl.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "User retrieved successfully", gin.H{"user": user})
}
