package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/models"
)

func TestSignupThenLogin(t *testing.T) {
	app := newTestApp(t)

	res := app.signup("Ann", "Ann@Example.com", "password123")
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotZero(t, res.User.ID)
	assert.Equal(t, "Ann", res.User.Name)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, int64(1), app.count(&models.RefreshToken{}))

	w := app.do(http.MethodPost, "/login", "", map[string]string{"email": "ann@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[authResult](t, w)
	assert.Equal(t, res.User.ID, login.User.ID)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEqual(t, res.RefreshToken, login.RefreshToken)
	assert.Equal(t, int64(2), app.count(&models.RefreshToken{}))
	assert.NotContains(t, w.Body.String(), "password")
}

func TestSignupDuplicateEmailCreatesNoRow(t *testing.T) {
	app := newTestApp(t)
	app.signup("Ann", "ann@example.com", "password123")

	w := app.do(http.MethodPost, "/signup", "", map[string]string{
		"name": "Other Ann", "email": "ANN@example.com", "password": "different123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", message(t, w))
	assert.Equal(t, int64(1), app.count(&models.User{}))
	assert.Equal(t, int64(1), app.count(&models.RefreshToken{}))
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing name", `{"email":"a@example.com","password":"password123"}`},
		{"blank name", `{"name":"   ","email":"a@example.com","password":"password123"}`},
		{"missing email", `{"name":"A","password":"password123"}`},
		{"bad email", `{"name":"A","email":"not-an-email","password":"password123"}`},
		{"short password", `{"name":"A","email":"a@example.com","password":"short"}`},
		{"unknown field", `{"name":"A","email":"a@example.com","password":"password123","role":"admin"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodPost, "/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, message(t, w))
		})
	}
	assert.Equal(t, int64(0), app.count(&models.User{}))
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t)
	app.signup("Ann", "ann@example.com", "password123")

	w := app.do(http.MethodPost, "/login", "", map[string]string{"email": "ann@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", message(t, w))

	w = app.do(http.MethodPost, "/login", "", map[string]string{"email": "nobody@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", message(t, w))

	w = app.do(http.MethodPost, "/login", "", map[string]string{"email": "ann@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshIssuesWorkingAccessToken(t *testing.T) {
	app := newTestApp(t)
	res := app.signup("Ann", "ann@example.com", "password123")

	w := app.do(http.MethodPost, "/refresh", "", map[string]string{"refreshToken": res.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]string](t, w)
	require.NotEmpty(t, body["accessToken"])

	w = app.do(http.MethodGet, "/users", body["accessToken"], nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshFailures(t *testing.T) {
	app := newTestApp(t)
	res := app.signup("Ann", "ann@example.com", "password123")

	// Correctly signed but never persisted.
	unknown, _, err := app.h.Tokens.GenerateRefreshToken(res.User.ID)
	require.NoError(t, err)

	expiredIssuer := auth.NewTokenManager(testAccessSecret, testRefreshSecret, time.Minute, -time.Minute)
	expired, _, err := expiredIssuer.GenerateRefreshToken(res.User.ID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{"missing", map[string]string{}, http.StatusUnauthorized, "Refresh token required"},
		{"no body", nil, http.StatusUnauthorized, "Refresh token required"},
		{"garbage", map[string]string{"refreshToken": "garbage"}, http.StatusForbidden, "Invalid refresh token"},
		{"access token", map[string]string{"refreshToken": res.AccessToken}, http.StatusForbidden, "Invalid refresh token"},
		{"expired", map[string]string{"refreshToken": expired}, http.StatusForbidden, "Refresh token expired"},
		{"not persisted", map[string]string{"refreshToken": unknown}, http.StatusForbidden, "Refresh token not recognized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodPost, "/refresh", "", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantMsg, message(t, w))
		})
	}
}

func TestLogoutForgetsRefreshTokenOnly(t *testing.T) {
	app := newTestApp(t)
	res := app.signup("Ann", "ann@example.com", "password123")

	w := app.do(http.MethodPost, "/logout", "", map[string]string{"refreshToken": res.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), app.count(&models.RefreshToken{}))

	w = app.do(http.MethodPost, "/refresh", "", map[string]string{"refreshToken": res.RefreshToken})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Refresh token not recognized", message(t, w))

	// Access tokens are stateless and survive logout until they expire.
	w = app.do(http.MethodGet, "/users", res.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Logging out twice is harmless.
	w = app.do(http.MethodPost, "/logout", "", map[string]string{"refreshToken": res.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodPost, "/logout", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token", message(t, w))

	w = app.do(http.MethodGet, "/cart", "not-a-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid token", message(t, w))

	w = app.do(http.MethodPost, "/orders/place", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUsers(t *testing.T) {
	app := newTestApp(t)
	ann := app.signup("Ann", "ann@example.com", "password123")
	app.signup("Bob", "bob@example.com", "password123")

	w := app.do(http.MethodGet, "/users", ann.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	users := decode[[]models.User](t, w)
	require.Len(t, users, 2)
	assert.Equal(t, "ann@example.com", users[0].Email)
	assert.Equal(t, "bob@example.com", users[1].Email)
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestUpdateProfile(t *testing.T) {
	app := newTestApp(t)
	ann := app.signup("Ann", "ann@example.com", "password123")
	app.signup("Bob", "bob@example.com", "password123")

	w := app.do(http.MethodPut, "/profile", ann.AccessToken, map[string]string{
		"name": "Ann Lee", "email": "ann.lee@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]models.User](t, w)["user"]
	assert.Equal(t, "Ann Lee", updated.Name)
	assert.Equal(t, "ann.lee@example.com", updated.Email)

	w = app.do(http.MethodPut, "/update-profile", ann.AccessToken, map[string]string{"password": "new-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodPost, "/login", "", map[string]string{"email": "ann.lee@example.com", "password": "new-password"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodPost, "/login", "", map[string]string{"email": "ann.lee@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPut, "/profile", ann.AccessToken, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already in use", message(t, w))

	w = app.do(http.MethodPut, "/profile", ann.AccessToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPut, "/profile", ann.AccessToken, map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPut, "/profile", "", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)

	w := app.doPreflight("/cart/add", "http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = app.doPreflight("/cart/add", "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
