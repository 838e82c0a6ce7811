package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/geocoder89/prefabstore/internal/auth"
	"github.com/geocoder89/prefabstore/internal/config"
	"github.com/geocoder89/prefabstore/internal/db"
	apphttp "github.com/geocoder89/prefabstore/internal/http"
	"github.com/geocoder89/prefabstore/internal/repo/postgres"
	"github.com/geocoder89/prefabstore/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfigAuth() config.Config {
	return config.Config{
		Env:            "test",
		JWTSecret:      "test-secret-key",
		AuthRateLimit:  1000,
		BcryptCost:     bcrypt.MinCost,
		AdminEmail:     "",
		AdminPassword:  "",
		AdminFirstName: "Test",
		AdminLastName:  "Admin",
	}
}

// setupAuthTestRouter needs a throwaway database in TEST_DB_DSN.
func setupAuthTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err, "connect")
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool), "migrate")

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := testConfigAuth()

	hasher, err := security.NewHasher(cfg.BcryptCost)
	require.NoError(t, err)

	tokens, err := auth.NewManager(cfg.JWTSecret)
	require.NoError(t, err)

	svc, err := auth.NewService(auth.ServiceConfig{
		Users:    postgres.NewUsersRepo(pool, nil),
		Hasher:   hasher,
		Tokens:   tokens,
		Denylist: auth.NewMemoryDenylist(),
		Logger:   logger,
	})
	require.NoError(t, err)

	router := apphttp.NewRouter(apphttp.Deps{
		Log:    logger,
		Config: cfg,
		Auth:   svc,
	})

	resetAuthDB(t, pool)
	t.Cleanup(func() { resetAuthDB(t, pool) })

	return router, pool
}

func resetAuthDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE users`)
	require.NoError(t, err, "truncate users")
}

type sessionResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body=%s", w.Body.String())
}

const registerBody = `{
	"firstName":"Sam","lastName":"Doe","email":"Sam@Example.com",
	"phoneNumber":"+15550100","password":"secret1",
	"address":{"street":"1 Main St","city":"Lagos"}
}`

func TestAuthIntegration_Register_Login_Me_Logout(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	w := doRequest(router, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	var reg sessionResponse
	mustReadJSON(t, w, &reg)
	assert.Equal(t, "sam@example.com", reg.Email)
	assert.Equal(t, "customer", reg.Role)
	require.NotEmpty(t, reg.Token)

	// duplicate email is a conflict regardless of case
	w = doRequest(router, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = doRequest(router, http.MethodPost, "/auth/login", `{"email":"sam@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login sessionResponse
	mustReadJSON(t, w, &login)
	assert.Equal(t, reg.ID, login.ID)
	assert.NotEqual(t, reg.Token, login.Token)

	w = doRequest(router, http.MethodGet, "/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(router, http.MethodPost, "/auth/logout", "", login.Token)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = doRequest(router, http.MethodGet, "/auth/me", "", login.Token)
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())

	// the registration token is a separate session and still works
	w = doRequest(router, http.MethodGet, "/auth/me", "", reg.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAuthIntegration_Login_InvalidCredentials(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	w := doRequest(router, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	unknown := doRequest(router, http.MethodPost, "/auth/login", `{"email":"nope@example.com","password":"secret1"}`, "")
	wrong := doRequest(router, http.MethodPost, "/auth/login", `{"email":"sam@example.com","password":"wrong-one"}`, "")

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)

	var e1, e2 apiErrorResponse
	mustReadJSON(t, unknown, &e1)
	mustReadJSON(t, wrong, &e2)
	assert.Equal(t, e1, e2)
	assert.Equal(t, "invalid_credentials", e1.Error.Code)
}

func TestAuthIntegration_AdminRoute_ForbiddenForCustomer(t *testing.T) {
	router, _ := setupAuthTestRouter(t)

	w := doRequest(router, http.MethodPost, "/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg sessionResponse
	mustReadJSON(t, w, &reg)

	w = doRequest(router, http.MethodGet, "/admin/users/"+reg.ID, "", reg.Token)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}
