package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mdnaeem95/halaltech/internal/api"
	"github.com/mdnaeem95/halaltech/internal/app"
	iauth "github.com/mdnaeem95/halaltech/internal/auth"
	"github.com/mdnaeem95/halaltech/internal/cache"
	sharedtestutil "github.com/mdnaeem95/halaltech/internal/database/testutil"
	"github.com/mdnaeem95/halaltech/internal/middleware"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/pkg/crypto"
	"github.com/mdnaeem95/halaltech/pkg/mail"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// DefaultPassword satisfies the local provider's password policy.
const DefaultPassword = "Secret123!"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T          *testing.T
	DB         *gorm.DB
	Router     *gin.Engine
	JWT        *iauth.JWTService
	Config     *app.Config
	Mailer     *mail.MemoryMailer
	csrfToken  string
	csrfCookie *http.Cookie
}

// NewEnv provisions a fresh handler test environment with migrations and the starter catalog applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	cfg := &app.Config{
		Server: app.ServerConfig{
			CSRF: app.CSRFConfig{Enabled: true},
			RateLimit: app.RateLimitConfig{
				Requests:     10000,
				AuthRequests: 1000,
				Window:       time.Minute,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL:    24 * time.Hour,
				RefreshLength: 48,
			},
		},
		Billing: app.BillingConfig{
			TaxRate:        0.09,
			Currency:       "SGD",
			PaymentDueDays: 30,
			InvoicePrefix:  "INV",
		},
		Quotes:      app.QuotesConfig{ValidityDays: 30},
		Marketplace: app.MarketplaceConfig{CacheTTL: time.Minute},
		Email:       app.EmailConfig{PortalURL: "https://portal.example.com"},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	require.NoError(t, err)

	mailer := &mail.MemoryMailer{}
	router, err := api.NewRouter(api.Dependencies{
		DB:        db,
		Config:    cfg,
		JWT:       jwtSvc,
		Sessions:  sessionSvc,
		RateStore: middleware.NewMemoryRateStore(),
		Store:     cache.NewDatabaseStore(db),
		Mailer:    mailer,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Config: cfg,
		Mailer: mailer,
	}
}

// CreateProfile inserts an active profile with the given role and password.
func (e *Env) CreateProfile(role, password string) *models.Profile {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	suffix := uuid.NewString()[:8]
	profile := &models.Profile{
		Email:        role + "-" + suffix + "@example.com",
		PasswordHash: hashed,
		FullName:     "Test " + role + " " + suffix,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(e.T, e.DB.Create(profile).Error)
	return profile
}

// Session is a logged-in profile and its access token.
type Session struct {
	Profile *models.Profile
	Token   string
}

// LoginAs creates a profile with role and logs it in.
func (e *Env) LoginAs(role string) Session {
	e.T.Helper()
	profile := e.CreateProfile(role, DefaultPassword)
	result := e.Login(profile.Email, DefaultPassword)
	return Session{Profile: profile, Token: result.Tokens.AccessToken}
}

func (e *Env) Admin() Session    { return e.LoginAs(models.RoleAdmin) }
func (e *Env) Client() Session   { return e.LoginAs(models.RoleClient) }
func (e *Env) Provider() Session { return e.LoginAs(models.RoleServiceProvider) }

// TokenPair mirrors the token payload returned from auth endpoints.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ProfilePayload captures the subset of profile fields returned from auth endpoints.
type ProfilePayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	CompanyName string `json:"company_name"`
	IsVerified  bool   `json:"is_verified"`
	IsActive    bool   `json:"is_active"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	Tokens  TokenPair      `json:"tokens"`
	Profile ProfilePayload `json:"profile"`
}

// Login authenticates using the local provider and returns the issued token pair.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	require.Equal(e.T, email, result.Profile.Email)

	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// MustData asserts the expected status and decodes the data payload.
func MustData[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	var out T
	DecodeInto(t, resp.Data, &out)
	return out
}

// ErrorCode asserts the expected status and returns the envelope's error code.
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int) string {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.request(method, path, body, token, false, cookies)
}

func (e *Env) request(method, path string, body any, token string, skipCSRF bool, cookies []*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	if !skipCSRF && requiresCSRFAttestation(method) {
		e.ensureCSRFToken()
		if e.csrfCookie != nil {
			req.AddCookie(e.csrfCookie)
		}
		if e.csrfToken != "" {
			req.Header.Set(middleware.CSRFHeaderName, e.csrfToken)
		}
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	e.captureCSRF(w.Result())
	return w
}

func (e *Env) ensureCSRFToken() {
	if e.csrfToken != "" && e.csrfCookie != nil {
		return
	}
	resp := e.request(http.MethodGet, "/health", nil, "", true, nil)
	require.Equal(e.T, http.StatusOK, resp.Code, resp.Body.String())
}

func (e *Env) captureCSRF(resp *http.Response) {
	if resp == nil {
		return
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(middleware.CSRFHeaderName); token != "" {
		e.csrfToken = token
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CSRFCookieName {
			e.csrfCookie = &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path}
			break
		}
	}
}

// ResponseCookie returns the named cookie set on a response, if any.
func ResponseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func requiresCSRFAttestation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
