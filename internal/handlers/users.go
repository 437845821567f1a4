package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"launchpad/api/internal/middleware"
	"launchpad/api/internal/models"
	"launchpad/api/internal/service"
)

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	PhoneNumber string `json:"phoneNumber"`
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusCreated, "User Registered successfully!", toUserResponse(user))
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

func (h HandlerSet) VerifyOTPAndRegister(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.auth.VerifyOTPAndRegister(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.setTokenCookie(c, result.Token)
	respond(c, http.StatusOK, "User verified and registered successfully!", authResponse{
		AccessToken: result.Token,
		User:        toUserResponse(result.User),
	})
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	result, err := h.users.List(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	users := make([]userResponse, 0, len(result.Users))
	for _, u := range result.Users {
		users = append(users, toUserResponse(u))
	}
	respondPage(c, "Users retrieve successfully!", result.Meta, users)
}

type updateProfileRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email" binding:"omitempty,email"`
	PhoneNumber  string `json:"phoneNumber"`
	ProfileImage string `json:"profileImage" binding:"omitempty,url"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, h.log, service.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), current.ID, service.ProfileInput{
		Name:         req.Name,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Profile updated successfully!", toUserResponse(user))
}

type adminUpdateRequest struct {
	Name                *string            `json:"name"`
	Role                *models.UserRole   `json:"role"`
	Status              *models.UserStatus `json:"status"`
	NeedsPasswordChange *bool              `json:"needsPasswordChange"`
}

func (h HandlerSet) AdminUpdateUser(c *gin.Context) {
	var req adminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.AdminUpdate(c.Request.Context(), c.Param("id"), service.AdminUpdateInput{
		Name:                req.Name,
		Role:                req.Role,
		Status:              req.Status,
		NeedsPasswordChange: req.NeedsPasswordChange,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "User updated successfully!", toUserResponse(user))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
