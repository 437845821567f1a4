package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"launchpad/api/internal/config"
	"launchpad/api/internal/middleware"
	"launchpad/api/internal/models"
	"launchpad/api/internal/security"
	"launchpad/api/internal/service"
)

type AuthService interface {
	Login(ctx context.Context, input service.LoginInput) (service.AuthResult, error)
	Register(ctx context.Context, input service.RegisterInput) (models.User, error)
	SendOTP(ctx context.Context, email string) (string, error)
	VerifyOTPAndRegister(ctx context.Context, email, code string) (service.AuthResult, error)
	Authenticate(ctx context.Context, token string) (models.User, *security.Claims, error)
	ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Profile(ctx context.Context, userID string) (models.User, error)
}

type UserService interface {
	List(ctx context.Context, page, limit int) (service.UserPage, error)
	UpdateProfile(ctx context.Context, userID string, input service.ProfileInput) (models.User, error)
	AdminUpdate(ctx context.Context, id string, input service.AdminUpdateInput) (models.User, error)
}

type UploadService interface {
	UploadImages(ctx context.Context, files []service.FileInput) ([]string, error)
	Remove(ctx context.Context, url string) error
}

type PaymentService interface {
	OneTimePayment(ctx context.Context, input service.OneTimePaymentInput) (service.PaymentResult, error)
	History(ctx context.Context, userID string, page, limit int) ([]models.Payment, error)
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Auth     AuthService
	Users    UserService
	Uploads  UploadService
	Payments PaymentService
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     AuthService
	users    UserService
	uploads  UploadService
	payments PaymentService
	limiter  middleware.Limiter
	checks   map[string]HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, services Services, limiter middleware.Limiter, checks map[string]HealthCheck) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     services.Auth,
		users:    services.Users,
		uploads:  services.Uploads,
		payments: services.Payments,
		limiter:  limiter,
		checks:   checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	requireUser := middleware.Auth(h.auth)
	requireAdmin := middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleSuperAdmin)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.limit("login"), h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", h.limit("forgot-password"), h.ForgotPassword)
		auth.POST("/reset-password", h.limit("reset-password"), h.ResetPassword)
		auth.POST("/send-otp", h.limit("send-otp"), h.SendOTP)

		auth.GET("/profile", requireUser, h.Profile)
		auth.PUT("/change-password", requireUser, h.ChangePassword)
	}

	users := v1.Group("/users")
	{
		users.POST("/register", h.limit("register"), h.CreateUser)
		users.POST("/verify-otp", h.limit("verify-otp"), h.VerifyOTPAndRegister)

		users.PUT("/profile", requireUser, h.UpdateProfile)
		users.GET("", requireUser, requireAdmin, h.ListUsers)
		users.PUT("/:id", requireUser, requireAdmin, h.AdminUpdateUser)
	}

	uploads := v1.Group("/uploads", requireUser)
	uploads.POST("/multiple/images", h.UploadImages)
	uploads.DELETE("/images", requireAdmin, h.DeleteImage)

	payments := v1.Group("/payments", requireUser)
	payments.POST("/one-time", h.OneTimePayment)
	payments.GET("", h.PaymentHistory)
}

func (h HandlerSet) limit(route string) gin.HandlerFunc {
	return middleware.RateLimit(h.limiter, route, h.cfg.RateLimit.Requests, h.cfg.RateLimit.Window)
}
