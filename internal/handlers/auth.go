package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad/api/internal/middleware"
	"launchpad/api/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.setTokenCookie(c, result.Token)
	respond(c, http.StatusOK, "Login successful", authResponse{
		AccessToken: result.Token,
		User:        toUserResponse(result.User),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookies(), true)
	respond(c, http.StatusOK, "User Successfully logged out", nil)
}

func (h HandlerSet) Profile(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}

	user, err := h.auth.Profile(c.Request.Context(), current.ID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "User profile retrieved successfully", toUserResponse(user))
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), middleware.TokenFromRequest(c), req.OldPassword, req.NewPassword)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Password changed successfully", nil)
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Check your email!", nil)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password" binding:"required"`
}

// ResetPassword takes the reset token from the Authorization header, falling
// back to the body.
func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token := middleware.TokenFromRequest(c)
	if c.GetHeader("Authorization") == "" && req.Token != "" {
		token = req.Token
	}
	if token == "" {
		badRequest(c, errors.New("reset token is required"))
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), token, req.Password); err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Password Reset!", nil)
}

func (h HandlerSet) SendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// the code only travels by email
	if _, err := h.auth.SendOTP(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "OTP sent successfully", nil)
}

func (h HandlerSet) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(h.cfg.Security.JWTTTL.Seconds()), "/", "", h.secureCookies(), true)
}

func (h HandlerSet) secureCookies() bool {
	return h.cfg.Environment == "production"
}
