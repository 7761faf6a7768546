package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/handler"
	"github.com/noah-isme/studyplan-api/internal/service"
)

type mockAuthService struct {
	password      string
	changedFor    uint
	newPassword   string
	loginAttempts int
}

func (m *mockAuthService) Login(_ context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	m.loginAttempts++
	if req.Email != "akua@example.com" || req.Password != m.password {
		return dto.LoginResponse{}, service.ErrInvalidCredentials
	}
	return dto.LoginResponse{
		AccessToken: "signed-token",
		TokenType:   "Bearer",
		ExpiresAt:   time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC),
		User:        dto.UserResponse{ID: 7, Email: req.Email, Role: "student"},
	}, nil
}

func (m *mockAuthService) ChangePassword(_ context.Context, userID uint, req dto.ChangePasswordRequest) error {
	if req.CurrentPassword != m.password {
		return service.ErrInvalidCredentials
	}
	m.changedFor = userID
	m.newPassword = req.NewPassword
	return nil
}

// newAuthApp mounts the public routes without identity and the protected ones behind a fake token check.
func newAuthApp(svc *mockAuthService, loginLimit int, userID uint) *fiber.App {
	app := fiber.New()
	api := app.Group("/api/v1")
	h := handler.NewAuthHandler(svc, loginLimit, zerolog.Nop())
	h.RegisterPublic(api)
	protected := api.Group("", func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("user_id", userID)
			c.Locals("user_role", "student")
		}
		return c.Next()
	})
	h.Register(protected)
	return app
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &mockAuthService{password: "correct-horse"}
	app := newAuthApp(svc, 10, 0)

	status, payload := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", `{"email":"akua@example.com","password":"correct-horse"}`)
	require.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]interface{})
	require.Equal(t, "signed-token", data["access_token"])
	require.Equal(t, "Bearer", data["token_type"])
	require.Equal(t, float64(7), data["user"].(map[string]interface{})["id"])

	status, payload = doRequest(t, app, http.MethodPost, "/api/v1/auth/login", `{"email":"akua@example.com","password":"nope"}`)
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, false, payload["success"])

	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/auth/login", `{"email":`)
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestAuthHandlerLoginIsRateLimited(t *testing.T) {
	svc := &mockAuthService{password: "correct-horse"}
	app := newAuthApp(svc, 2, 0)
	body := `{"email":"akua@example.com","password":"nope"}`

	for i := 0; i < 2; i++ {
		status, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", body)
		require.Equal(t, fiber.StatusUnauthorized, status)
	}
	status, _ := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", body)
	require.Equal(t, fiber.StatusTooManyRequests, status)
	require.Equal(t, 2, svc.loginAttempts)
}

func TestAuthHandlerChangePassword(t *testing.T) {
	svc := &mockAuthService{password: "correct-horse"}
	body := `{"current_password":"correct-horse","new_password":"battery-staple"}`

	status, _ := doRequest(t, newAuthApp(svc, 10, 0), http.MethodPost, "/api/v1/auth/change-password", body)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doRequest(t, newAuthApp(svc, 10, 7), http.MethodPost, "/api/v1/auth/change-password", `{"current_password":"wrong","new_password":"battery-staple"}`)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, payload := doRequest(t, newAuthApp(svc, 10, 7), http.MethodPost, "/api/v1/auth/change-password", body)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, true, payload["success"])
	require.Equal(t, uint(7), svc.changedFor)
	require.Equal(t, "battery-staple", svc.newPassword)
}

var _ service.AuthService = (*mockAuthService)(nil)
