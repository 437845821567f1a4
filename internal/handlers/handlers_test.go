package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/api/internal/config"
	"launchpad/api/internal/models"
	"launchpad/api/internal/security"
	"launchpad/api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	alice = models.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: models.UserRoleUser, Status: models.UserStatusActive, IsVerified: true, PasswordHash: []byte("hash")}
	admin = models.User{ID: "u2", Name: "Admin", Email: "admin@example.com", Role: models.UserRoleAdmin, Status: models.UserStatusActive, IsVerified: true}
)

type authStub struct {
	login          func(service.LoginInput) (service.AuthResult, error)
	register       func(service.RegisterInput) (models.User, error)
	verify         func(email, code string) (service.AuthResult, error)
	changePassword func(token, oldPassword, newPassword string) error
	resetPassword  func(token, password string) error
	sentOTPTo      string
	forgotFor      string
}

func (s *authStub) Login(_ context.Context, in service.LoginInput) (service.AuthResult, error) {
	return s.login(in)
}

func (s *authStub) Register(_ context.Context, in service.RegisterInput) (models.User, error) {
	return s.register(in)
}

func (s *authStub) SendOTP(_ context.Context, email string) (string, error) {
	s.sentOTPTo = email
	return "123456", nil
}

func (s *authStub) VerifyOTPAndRegister(_ context.Context, email, code string) (service.AuthResult, error) {
	return s.verify(email, code)
}

func (s *authStub) Authenticate(_ context.Context, token string) (models.User, *security.Claims, error) {
	switch token {
	case "alice-token":
		return alice, &security.Claims{UserID: alice.ID}, nil
	case "admin-token":
		return admin, &security.Claims{UserID: admin.ID}, nil
	}
	return models.User{}, nil, fmt.Errorf("%w: invalid token", service.ErrUnauthorized)
}

func (s *authStub) ChangePassword(_ context.Context, token, oldPassword, newPassword string) error {
	return s.changePassword(token, oldPassword, newPassword)
}

func (s *authStub) ForgotPassword(_ context.Context, email string) error {
	s.forgotFor = email
	return nil
}

func (s *authStub) ResetPassword(_ context.Context, token, password string) error {
	return s.resetPassword(token, password)
}

func (s *authStub) Profile(_ context.Context, userID string) (models.User, error) {
	if userID == alice.ID {
		return alice, nil
	}
	return models.User{}, service.ErrNotFound
}

type usersStub struct {
	page      service.UserPage
	gotPage   int
	gotLimit  int
	adminEdit service.AdminUpdateInput
}

func (s *usersStub) List(_ context.Context, page, limit int) (service.UserPage, error) {
	s.gotPage, s.gotLimit = page, limit
	return s.page, nil
}

func (s *usersStub) UpdateProfile(_ context.Context, userID string, in service.ProfileInput) (models.User, error) {
	u := alice
	u.Name = in.Name
	return u, nil
}

func (s *usersStub) AdminUpdate(_ context.Context, id string, in service.AdminUpdateInput) (models.User, error) {
	s.adminEdit = in
	if in.Role != nil && !in.Role.Valid() {
		return models.User{}, fmt.Errorf("%w: unknown role", service.ErrBadRequest)
	}
	u := alice
	u.ID = id
	return u, nil
}

type uploadsStub struct {
	names     []string
	bodies    []string
	removed   []string
	removeErr error
}

func (s *uploadsStub) Remove(_ context.Context, url string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, url)
	return nil
}

func (s *uploadsStub) UploadImages(_ context.Context, files []service.FileInput) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		data, err := io.ReadAll(f.Content)
		if err != nil {
			return nil, err
		}
		s.names = append(s.names, f.Name)
		s.bodies = append(s.bodies, string(data))
		urls = append(urls, "https://media.example.com/"+f.Name)
	}
	return urls, nil
}

type paymentsStub struct {
	input service.OneTimePaymentInput
}

func (s *paymentsStub) OneTimePayment(_ context.Context, in service.OneTimePaymentInput) (service.PaymentResult, error) {
	s.input = in
	return service.PaymentResult{PaymentIntentID: "pi_1", Status: "succeeded", AmountCents: 1250, Currency: "usd"}, nil
}

func (s *paymentsStub) History(_ context.Context, userID string, page, limit int) ([]models.Payment, error) {
	return []models.Payment{{ID: "p1", UserID: userID, PaymentIntentID: "pi_1", AmountCents: 1250, Currency: "usd", Status: "succeeded"}}, nil
}

type testAPI struct {
	router   *gin.Engine
	auth     *authStub
	users    *usersStub
	uploads  *uploadsStub
	payments *paymentsStub
	checkErr error
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	api := &testAPI{
		auth:     &authStub{},
		users:    &usersStub{},
		uploads:  &uploadsStub{},
		payments: &paymentsStub{},
	}
	cfg := &config.AppConfig{Environment: "test"}
	cfg.Security.JWTTTL = time.Hour
	cfg.Storage.MaxFiles = 2
	cfg.Storage.MaxFileBytes = 1 << 20

	checks := map[string]HealthCheck{
		"database": func(context.Context) error { return api.checkErr },
	}

	h := NewHandlerSet(zerolog.Nop(), cfg, Services{
		Auth:     api.auth,
		Users:    api.users,
		Uploads:  api.uploads,
		Payments: api.payments,
	}, nil, checks)

	api.router = gin.New()
	h.Register(api.router.Group("/api"))
	return api
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type envelopeBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestLoginSetsCookieAndHidesHash(t *testing.T) {
	api := newTestAPI(t)
	api.auth.login = func(in service.LoginInput) (service.AuthResult, error) {
		assert.Equal(t, "alice@example.com", in.Email)
		return service.AuthResult{Token: "alice-token", User: alice}, nil
	}

	rec := api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "Login successful", body.Message)
	assert.NotContains(t, string(body.Data), "hash")
	assert.NotContains(t, string(body.Data), "password")

	var data authResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "alice-token", data.AccessToken)
	assert.Equal(t, "u1", data.User.ID)

	cookie := rec.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "token=alice-token")
	assert.Contains(t, cookie, "HttpOnly")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: user with email x", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("%w: account is not verified", service.ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
		{fmt.Errorf("%w: account is blocked", service.ErrForbidden), http.StatusForbidden, "forbidden"},
		{service.ErrConflict, http.StatusConflict, "conflict"},
		{service.ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
		{fmt.Errorf("%w: otp", service.ErrExpired), http.StatusGone, "expired"},
		{fmt.Errorf("find user: %w", errors.New("dial tcp: connection refused")), http.StatusInternalServerError, "internal_server_error"},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			api := newTestAPI(t)
			api.auth.login = func(service.LoginInput) (service.AuthResult, error) {
				return service.AuthResult{}, tc.err
			}

			rec := api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "x"})
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Error)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, "connection refused")
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode(t, rec).Error)
}

func TestLogoutClearsCookie(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestProfileRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/auth/profile", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data userResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "alice@example.com", data.Email)
}

func TestChangePasswordPassesCallerToken(t *testing.T) {
	api := newTestAPI(t)
	var gotToken, gotOld, gotNew string
	api.auth.changePassword = func(token, oldPassword, newPassword string) error {
		gotToken, gotOld, gotNew = token, oldPassword, newPassword
		return nil
	}

	rec := api.do(http.MethodPut, "/api/v1/auth/change-password", "alice-token", gin.H{"oldPassword": "secret123", "newPassword": "newpass456"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice-token", gotToken)
	assert.Equal(t, "secret123", gotOld)
	assert.Equal(t, "newpass456", gotNew)
}

func TestResetPasswordTokenSources(t *testing.T) {
	api := newTestAPI(t)
	var gotToken string
	api.auth.resetPassword = func(token, password string) error {
		gotToken = token
		if token == "stale" {
			return fmt.Errorf("%w: invalid reset token", service.ErrUnauthorized)
		}
		return nil
	}

	rec := api.do(http.MethodPost, "/api/v1/auth/reset-password", "header-token", gin.H{"password": "brandnew789"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "header-token", gotToken)

	rec = api.do(http.MethodPost, "/api/v1/auth/reset-password", "", gin.H{"password": "brandnew789", "token": "body-token"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body-token", gotToken)

	rec = api.do(http.MethodPost, "/api/v1/auth/reset-password", "", gin.H{"password": "brandnew789"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/auth/reset-password", "stale", gin.H{"password": "brandnew789"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendOTPDoesNotEchoCode(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/v1/auth/send-otp", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "123456")
	assert.Equal(t, "alice@example.com", api.auth.sentOTPTo)
}

func TestForgotPassword(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/api/v1/auth/forgot-password", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Check your email!", decode(t, rec).Message)
	assert.Equal(t, "alice@example.com", api.auth.forgotFor)
}

func TestRegisterAndVerify(t *testing.T) {
	api := newTestAPI(t)
	api.auth.register = func(in service.RegisterInput) (models.User, error) {
		u := alice
		u.IsVerified = false
		u.Name = in.Name
		return u, nil
	}
	api.auth.verify = func(email, code string) (service.AuthResult, error) {
		if code != "654321" {
			return service.AuthResult{}, service.ErrInvalidCode
		}
		return service.AuthResult{Token: "alice-token", User: alice}, nil
	}

	rec := api.do(http.MethodPost, "/api/v1/users/register", "", gin.H{"name": "Alice", "email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/users/verify-otp", "", gin.H{"email": "alice@example.com", "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_code", decode(t, rec).Error)

	rec = api.do(http.MethodPost, "/api/v1/users/verify-otp", "", gin.H{"email": "alice@example.com", "otp": "654321"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "token=alice-token")
}

func TestListUsersIsAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	api.users.page = service.UserPage{
		Meta:  service.PageMeta{Page: 2, Limit: 5, Total: 6},
		Users: []models.User{alice},
	}

	rec := api.do(http.MethodGet, "/api/v1/users?page=2&limit=5", "alice-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/users?page=2&limit=5", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, api.users.gotPage)
	assert.Equal(t, 5, api.users.gotLimit)

	body := decode(t, rec)
	var meta service.PageMeta
	require.NoError(t, json.Unmarshal(body.Meta, &meta))
	assert.Equal(t, 6, meta.Total)

	var users []userResponse
	require.NoError(t, json.Unmarshal(body.Data, &users))
	require.Len(t, users, 1)
}

func TestAdminUpdateUser(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPut, "/api/v1/users/u9", "admin-token", gin.H{"role": "ADMIN", "status": "BLOCKED"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, api.users.adminEdit.Role)
	assert.Equal(t, models.UserRoleAdmin, *api.users.adminEdit.Role)
	assert.Equal(t, models.UserStatusBlocked, *api.users.adminEdit.Status)
	assert.Nil(t, api.users.adminEdit.Name)

	rec = api.do(http.MethodPut, "/api/v1/users/u9", "admin-token", gin.H{"role": "ROOT"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/api/v1/users/u9", "alice-token", gin.H{"role": "ADMIN"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateProfileRoutesToCaller(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPut, "/api/v1/users/profile", "alice-token", gin.H{"name": "Alicia"})
	require.Equal(t, http.StatusOK, rec.Code)

	var data userResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "Alicia", data.Name)
}

func multipartRequest(t *testing.T, token string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(uploadField, name)
		require.NoError(t, err)
		_, err = io.Copy(part, strings.NewReader(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/multiple/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestUploadImages(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, multipartRequest(t, "alice-token", map[string]string{"a.png": "png-bytes"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		URLs []string `json:"urls"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, []string{"https://media.example.com/a.png"}, data.URLs)
	assert.Equal(t, []string{"png-bytes"}, api.uploads.bodies)
}

func TestUploadImagesRejects(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, multipartRequest(t, "", map[string]string{"a.png": "x"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, multipartRequest(t, "alice-token", map[string]string{"a.png": "x", "b.png": "y", "c.png": "z"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, multipartRequest(t, "alice-token", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, api.uploads.names)
}

func TestDeleteImage(t *testing.T) {
	api := newTestAPI(t)
	target := gin.H{"url": "https://media.example.com/a.png"}

	rec := api.do(http.MethodDelete, "/api/v1/uploads/images", "", target)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodDelete, "/api/v1/uploads/images", "alice-token", target)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, api.uploads.removed)

	rec = api.do(http.MethodDelete, "/api/v1/uploads/images", "admin-token", gin.H{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, "/api/v1/uploads/images", "admin-token", target)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Image deleted successfully", decode(t, rec).Message)
	assert.Equal(t, []string{"https://media.example.com/a.png"}, api.uploads.removed)

	api.uploads.removeErr = fmt.Errorf("%w: object url does not belong to this bucket", service.ErrBadRequest)
	rec = api.do(http.MethodDelete, "/api/v1/uploads/images", "admin-token", gin.H{"url": "https://elsewhere.example.com/a.png"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode(t, rec).Error)
}

func TestOneTimePayment(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/v1/payments/one-time", "alice-token", gin.H{"amount": 12.5, "paymentMethod": "pm_card"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.OneTimePaymentInput{UserID: "u1", Amount: 12.5, PaymentMethod: "pm_card"}, api.payments.input)

	var data map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "pi_1", data["paymentIntentId"])
	assert.Equal(t, 12.5, data["amount"])

	rec = api.do(http.MethodPost, "/api/v1/payments/one-time", "alice-token", gin.H{"amount": -1, "paymentMethod": "pm_card"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentHistory(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/api/v1/payments", "alice-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []paymentResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 12.5, list[0].Amount)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.checkErr = errors.New("down")
	rec = api.do(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "error", body.Checks["database"])
}
