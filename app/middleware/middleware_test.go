package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisfaizi/product-image-upload/app/dto"
	"github.com/thisisfaizi/product-image-upload/app/services"
)

func newTestTokens(t *testing.T) *services.TokenServiceImpl {
	t.Helper()
	svc, err := services.NewTokenService(time.Hour, 2*time.Hour, "test", "test", false, "", "", "middleware-test-secret-key-32-chars!!")
	require.NoError(t, err)
	return svc
}

func identityApp(tokens services.TokenService) *fiber.App {
	app := fiber.New()
	auth := NewAuthMiddleware(tokens)
	app.Get("/whoami", auth.OptionalAuth(), GuestIdentity(false), func(c fiber.Ctx) error {
		if id, ok := GetCustomerIDFromContext(c); ok {
			return c.JSON(fiber.Map{"customer_id": id})
		}
		guest, _ := GetGuestTokenFromContext(c)
		return c.JSON(fiber.Map{"guest": guest})
	})
	return app
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestGuestIdentity_IssuesAndReusesCookie(t *testing.T) {
	app := identityApp(newTestTokens(t))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == GuestCookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.Regexp(t, `^guest_[a-f0-9]{32}$`, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, cookie.Value, decodeMap(t, resp)["guest"])

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: cookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, cookie.Value, decodeMap(t, resp)["guest"])
	assert.Empty(t, resp.Cookies(), "a valid cookie is not reissued")
}

func TestGuestIdentity_ReplacesForgedCookie(t *testing.T) {
	app := identityApp(newTestTokens(t))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "guest_../../etc"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	guest, _ := decodeMap(t, resp)["guest"].(string)
	assert.Regexp(t, `^guest_[a-f0-9]{32}$`, guest)
}

func TestOptionalAuth(t *testing.T) {
	tokens := newTestTokens(t)
	app := identityApp(tokens)

	access, refresh, err := tokens.GenerateTokens(77)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, float64(77), decodeMap(t, resp)["customer_id"])

	// refresh tokens and garbage fall back to guest identity
	for _, header := range []string{"Bearer " + refresh, "Bearer nonsense", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", header)
		resp, err := app.Test(req)
		require.NoError(t, err)
		body := decodeMap(t, resp)
		assert.NotContains(t, body, "customer_id", header)
		assert.Contains(t, body, "guest", header)
	}
}

func TestAdminAuthenticate(t *testing.T) {
	tokens := newTestTokens(t)
	app := fiber.New()
	app.Get("/admin", NewAuthMiddleware(tokens).AdminAuthenticate(), func(c fiber.Ctx) error {
		id, _ := GetAdminIDFromContext(c)
		return c.JSON(fiber.Map{"admin_id": id})
	})

	adminAccess, _, err := tokens.GenerateAdminTokens(3)
	require.NoError(t, err)
	customerAccess, _, err := tokens.GenerateTokens(3)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"admin token", "Bearer " + adminAccess, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "MISSING_AUTHORIZATION_HEADER"},
		{"wrong scheme", "Token " + adminAccess, http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT"},
		{"customer token", "Bearer " + customerAccess, http.StatusUnauthorized, "TOKEN_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.code == "" {
				return
			}
			var body dto.APIResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			detail, _ := body.Error.(map[string]any)
			assert.Equal(t, tt.code, detail["code"])
		})
	}
}
