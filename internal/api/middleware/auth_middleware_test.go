package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newProtectedApp() *fiber.App {
	cfg := config.Config{
		SecretKey:  testSecret,
		APIKey:     "ops-key",
		CookieName: "publisher_session",
	}

	app := fiber.New()
	app.Use(NewAuthMiddleware(cfg).AuthMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		operator, _ := c.Locals("operator").(string)
		return c.SendString(operator)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	valid, err := utils.GenerateToken(testSecret, "alex", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(testSecret, "alex", -time.Hour)
	require.NoError(t, err)
	foreign, err := utils.GenerateToken("another-secret-another-secret-00", "alex", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name         string
		prepare      func(r *http.Request)
		wantStatus   int
		wantOperator string
	}{
		{
			name:       "no credentials",
			prepare:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:         "api key header",
			prepare:      func(r *http.Request) { r.Header.Set("X-API-Key", "ops-key") },
			wantStatus:   http.StatusOK,
			wantOperator: "api_key",
		},
		{
			name:       "wrong api key",
			prepare:    func(r *http.Request) { r.Header.Set("X-API-Key", "guess") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:         "bearer token",
			prepare:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) },
			wantStatus:   http.StatusOK,
			wantOperator: "alex",
		},
		{
			name: "session cookie",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "publisher_session", Value: valid})
			},
			wantStatus:   http.StatusOK,
			wantOperator: "alex",
		},
		{
			name:       "expired token",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token signed with another key",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+foreign) },
			wantStatus: http.StatusUnauthorized,
		},
	}

	app := newProtectedApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantOperator != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantOperator, string(body))
			}
		})
	}
}

func TestAuthMiddleware_APIKeyQuery(t *testing.T) {
	app := newProtectedApp()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?api_key=ops-key", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
