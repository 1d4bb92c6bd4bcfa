package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/audit"
	"landregistry/internal/identity/service"
	sessionstore "landregistry/internal/identity/store/session"
	userstore "landregistry/internal/identity/store/user"
	"landregistry/internal/jwttoken"
	"landregistry/internal/platform/middleware"
)

const testSessionTTL = 24 * time.Hour

type fixture struct {
	handler *Handler
	tokens  *jwttoken.Service
	router  chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identity := service.New(userstore.NewInMemory(), sessionstore.NewInMemory(), audit.NewEmitter(nil, nil, nil), testSessionTTL)
	tokens := jwttoken.NewService("handler-test-key", "landregistry-test")
	requireAuth := middleware.RequireAuth(tokens, identity, logger)

	h := New(identity, tokens, requireAuth, testSessionTTL, false, logger)
	r := chi.NewRouter()
	h.Register(r)
	return &fixture{handler: h, tokens: tokens, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func signupBody(citizenID, email string) map[string]string {
	return map[string]string{
		"citizen_id":   citizenID,
		"email":        email,
		"phone_number": "+1-555-0100",
		"name":         "Test User",
		"password":     "correct-horse-battery",
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestSignup(t *testing.T) {
	t.Run("creates the user and sets the session cookie", func(t *testing.T) {
		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "one@example.com"))
		require.Equal(t, http.StatusCreated, rec.Code)

		var got struct {
			ID        string `json:"id"`
			CitizenID string `json:"citizen_id"`
			Role      string `json:"role"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "111", got.CitizenID)
		assert.Equal(t, "owner", got.Role)

		cookie := sessionCookie(t, rec)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.Equal(t, int(testSessionTTL.Seconds()), cookie.MaxAge)

		claims, err := f.tokens.ValidateToken(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, got.ID, claims.UserID)
		assert.NotEmpty(t, claims.SessionID)
	})

	t.Run("never echoes the password hash", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "one@example.com"))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("duplicate citizen id conflicts", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "one@example.com")).Code)

		rec := f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "other@example.com"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		f := newFixture(t)
		body := signupBody("111", "one@example.com")
		body["name"] = ""
		rec := f.do(t, http.MethodPost, "/auth/signup", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials open a session", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "one@example.com")).Code)

		rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"citizen_id": "111",
			"password":   "correct-horse-battery",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		cookie := sessionCookie(t, rec)
		_, err := f.tokens.ValidateToken(cookie.Value)
		assert.NoError(t, err)
	})

	t.Run("wrong password and unknown citizen id look identical", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "one@example.com")).Code)

		wrongPassword := f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"citizen_id": "111",
			"password":   "nope",
		})
		unknownCitizen := f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"citizen_id": "999",
			"password":   "correct-horse-battery",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownCitizen.Code)
		assert.Equal(t, wrongPassword.Body.String(), unknownCitizen.Body.String())
	})
}

func TestMe(t *testing.T) {
	t.Run("returns the authenticated user", func(t *testing.T) {
		f := newFixture(t)
		cookie := sessionCookie(t, f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "one@example.com")))

		rec := f.do(t, http.MethodGet, "/auth/me", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			CitizenID string `json:"citizen_id"`
			Email     string `json:"email"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "111", got.CitizenID)
		assert.Equal(t, "one@example.com", got.Email)
	})

	t.Run("rejects anonymous requests", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodGet, "/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		f := newFixture(t)
		forged := &http.Cookie{Name: middleware.CookieName, Value: "not-a-jwt"}
		rec := f.do(t, http.MethodGet, "/auth/me", nil, forged)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Run("clears the cookie and kills the session", func(t *testing.T) {
		f := newFixture(t)
		cookie := sessionCookie(t, f.do(t, http.MethodPost, "/auth/signup", signupBody("111", "one@example.com")))

		rec := f.do(t, http.MethodPost, "/auth/logout", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		cleared := sessionCookie(t, rec)
		assert.Empty(t, cleared.Value)
		assert.True(t, cleared.Expires.Before(time.Now()))

		// The old token still decodes but its session is gone.
		me := f.do(t, http.MethodGet, "/auth/me", nil, cookie)
		assert.Equal(t, http.StatusUnauthorized, me.Code)
	})

	t.Run("logout without a cookie still succeeds", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/auth/logout", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
