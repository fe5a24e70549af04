package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/handlers/testutil"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/models"
)

type mePayload struct {
	Profile     testutil.ProfilePayload `json:"profile"`
	Permissions []string                `json:"permissions"`
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":        "Client@Example.com",
		"password":     testutil.DefaultPassword,
		"full_name":    "Siti Client",
		"company_name": "Barakah Foods",
	}, "")
	registered := testutil.MustData[testutil.LoginResult](t, w, http.StatusCreated)
	require.Equal(t, "client@example.com", registered.Profile.Email)
	require.Equal(t, models.RoleClient, registered.Profile.Role)
	require.NotEmpty(t, registered.Tokens.AccessToken)
	require.NotNil(t, testutil.ResponseCookie(w, middleware.RefreshCookieName))

	login := env.Login("client@example.com", testutil.DefaultPassword)

	me := testutil.MustData[mePayload](t, env.Request(http.MethodGet, "/api/auth/me", nil, login.Tokens.AccessToken), http.StatusOK)
	require.Equal(t, registered.Profile.ID, me.Profile.ID)
	require.Contains(t, me.Permissions, "project.create")
	require.NotContains(t, me.Permissions, "catalog.manage")
}

func TestRegisterRejectsAdminRoleAndDuplicates(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/register", map[string]any{
		"email":     "boss@example.com",
		"password":  testutil.DefaultPassword,
		"full_name": "Boss",
		"role":      models.RoleAdmin,
	}, "")
	require.Equal(t, "ROLE_NOT_ALLOWED", testutil.ErrorCode(t, w, http.StatusForbidden))

	body := map[string]any{
		"email":     "provider@example.com",
		"password":  testutil.DefaultPassword,
		"full_name": "Provider",
		"role":      models.RoleServiceProvider,
	}
	testutil.MustData[testutil.LoginResult](t, env.Request(http.MethodPost, "/api/auth/register", body, ""), http.StatusCreated)

	w = env.Request(http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, "EMAIL_TAKEN", testutil.ErrorCode(t, w, http.StatusConflict))

	w = env.Request(http.MethodPost, "/api/auth/register", map[string]any{"email": "not-an-email"}, "")
	require.Equal(t, "VALIDATION_FAILED", testutil.ErrorCode(t, w, http.StatusBadRequest))
}

func TestLoginWithWrongPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	profile := env.CreateProfile(models.RoleClient, testutil.DefaultPassword)

	w := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    profile.Email,
		"password": "nope-nope-1",
	}, "")
	require.Equal(t, "INVALID_CREDENTIALS", testutil.ErrorCode(t, w, http.StatusUnauthorized))
}

func TestRefreshWithCookieRequiresCSRFToken(t *testing.T) {
	env := testutil.NewEnv(t)
	profile := env.CreateProfile(models.RoleClient, testutil.DefaultPassword)

	w := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    profile.Email,
		"password": testutil.DefaultPassword,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := testutil.ResponseCookie(w, middleware.RefreshCookieName)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	// No CSRF header: the refresh cookie alone must not be enough.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	require.Equal(t, "CSRF_TOKEN_INVALID", testutil.ErrorCode(t, rec, http.StatusForbidden))

	refreshed := testutil.MustData[testutil.TokenPair](t,
		env.Request(http.MethodPost, "/api/auth/refresh", map[string]string{}, "", &http.Cookie{Name: cookie.Name, Value: cookie.Value}),
		http.StatusOK)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, cookie.Value, refreshed.RefreshToken)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()

	w := env.Request(http.MethodPost, "/api/auth/logout", nil, client.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/auth/me", nil, client.Token)
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/api/auth/me", "/api/projects", "/api/invoices", "/api/notifications", "/api/admin/dashboard"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()

	w := env.Request(http.MethodPost, "/api/profile/password", map[string]string{
		"current_password": "not-my-password",
		"new_password":     "Another123!",
	}, client.Token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/profile/password", map[string]string{
		"current_password": testutil.DefaultPassword,
		"new_password":     "short",
	}, client.Token)
	require.Equal(t, "VALIDATION_FAILED", testutil.ErrorCode(t, w, http.StatusBadRequest))

	w = env.Request(http.MethodPost, "/api/profile/password", map[string]string{
		"current_password": testutil.DefaultPassword,
		"new_password":     "Another123!",
	}, client.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.Login(client.Profile.Email, "Another123!")
}
