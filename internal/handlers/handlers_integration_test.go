package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"yamdb/internal/codegen"
	"yamdb/internal/config"
	"yamdb/internal/handlers"
	"yamdb/internal/models"
	"yamdb/internal/notifier"
	"yamdb/internal/permissions"
	"yamdb/internal/repositories"
	"yamdb/internal/services"
	"yamdb/internal/validation"
	"yamdb/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recordingNotifier keeps the last email body per recipient. The test
// template renders the bare code as the body.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  map[string]string
	count int
}

func (n *recordingNotifier) Send(_ context.Context, to, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[to] = body
	n.count++
	return nil
}

func (n *recordingNotifier) lastCode(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[email]
}

type testEnv struct {
	app      *fiber.App
	auth     *services.AuthService
	userRepo repositories.UserRepository
	mail     *recordingNotifier
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := repositories.OpenDatabase("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	require.NoError(t, repositories.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	authCfg := config.DefaultAuth()
	authCfg.CodeHashCost = bcrypt.MinCost
	log := logger.Discard()

	userRepo := repositories.NewGORMUserRepository(db)
	titleRepo := repositories.NewGORMTitleRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	codes, err := codegen.New(authCfg.CodeLength, authCfg.CodeAlphabet)
	require.NoError(t, err)
	tmpl, err := notifier.NewTemplate("Confirmation code", "{{.Code}}")
	require.NoError(t, err)
	mail := &recordingNotifier{sent: map[string]string{}}

	validator := validation.New(authCfg)
	evaluator := permissions.NewEvaluator(permissions.DefaultConfig())

	authService := services.NewAuthService(userRepo, codes, notifier.NewConfirmationMailer(mail, tmpl),
		validator, authCfg, config.JWTConfig{Secret: "test_jwt_secret", TTL: time.Hour}, log)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	handlers.RegisterAPI(app, handlers.Services{
		Auth:    authService,
		Users:   services.NewUserService(userRepo, validator, log),
		Titles:  services.NewTitleService(titleRepo, validator),
		Reviews: services.NewReviewService(reviewRepo, titleRepo, evaluator, validator),
	}, evaluator, log)

	return &testEnv{app: app, auth: authService, userRepo: userRepo, mail: mail}
}

// tokenFor stores a user with the given role and returns a bearer token for it.
func (e *testEnv) tokenFor(t *testing.T, username string, role models.Role) string {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@yamdb.test", Role: role}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	token, err := e.auth.IssueToken(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestSignupAndTokenFlow(t *testing.T) {
	env := setupApp(t)
	signup := map[string]string{"username": "alice", "email": "a@x.com"}

	status, raw := env.do(t, http.MethodPost, "/v1/auth/signup/", "", signup)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, map[string]any{"username": "alice", "email": "a@x.com"}, decode(t, raw))

	code := env.mail.lastCode("a@x.com")
	assert.Len(t, code, 12)
	stored, err := env.userRepo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, stored.Role)

	// a wrong guess burns the code
	status, raw = env.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "alice", "confirmation_code": "wrong-code",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid confirmation code, request a new one", decode(t, raw)["error"])

	status, _ = env.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "alice", "confirmation_code": code,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// re-signup issues a usable code
	status, _ = env.do(t, http.MethodPost, "/v1/auth/signup/", "", signup)
	require.Equal(t, http.StatusOK, status)
	fresh := env.mail.lastCode("a@x.com")
	assert.NotEqual(t, code, fresh)

	status, raw = env.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "alice", "confirmation_code": fresh,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	token, _ := decode(t, raw)["token"].(string)
	require.NotEmpty(t, token)

	claims, err := env.auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.Subject)

	// the code is single use
	status, _ = env.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{
		"username": "alice", "confirmation_code": fresh,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = env.do(t, http.MethodGet, "/v1/users/me/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", decode(t, raw)["username"])
	assert.Equal(t, 2, env.mail.count)
}

func TestSignupRejections(t *testing.T) {
	env := setupApp(t)

	status, _ := env.do(t, http.MethodPost, "/v1/auth/signup/", "", map[string]string{"username": "alice", "email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)

	// username taken with another email, and email taken with another username
	for _, body := range []map[string]string{
		{"username": "alice", "email": "other@x.com"},
		{"username": "bob", "email": "a@x.com"},
	} {
		status, raw := env.do(t, http.MethodPost, "/v1/auth/signup/", "", body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "account with this email or username already exists", decode(t, raw)["error"])
	}

	status, raw := env.do(t, http.MethodPost, "/v1/auth/signup/", "", map[string]string{"username": "me", "email": "me@x.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	errs, _ := decode(t, raw)["errors"].(map[string]any)
	assert.Equal(t, "'me' cannot be used as a username", errs["username"])

	status, _ = env.do(t, http.MethodPost, "/v1/auth/signup/", "", map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/v1/auth/token/", "", map[string]string{"username": "ghost", "confirmation_code": "X"})
	assert.Equal(t, http.StatusNotFound, status)

	users, err := env.userRepo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUsersMe(t *testing.T) {
	env := setupApp(t)
	token := env.tokenFor(t, "alice", models.RoleUser)

	status, _ := env.do(t, http.MethodGet, "/v1/users/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/v1/users/me/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := env.do(t, http.MethodPatch, "/v1/users/me/", token, map[string]string{
		"bio":  "reviewer",
		"role": "admin",
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	me := decode(t, raw)
	assert.Equal(t, "reviewer", me["bio"])
	assert.Equal(t, "user", me["role"])

	env.tokenFor(t, "bob", models.RoleUser)
	status, _ = env.do(t, http.MethodPatch, "/v1/users/me/", token, map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminUserManagement(t *testing.T) {
	env := setupApp(t)
	admin := env.tokenFor(t, "root", models.RoleAdmin)
	user := env.tokenFor(t, "alice", models.RoleUser)

	status, _ := env.do(t, http.MethodGet, "/v1/users/", user, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodGet, "/v1/users/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw := env.do(t, http.MethodPost, "/v1/users/", admin, map[string]string{
		"username": "bob", "email": "b@x.com", "role": "moderator",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Equal(t, "moderator", decode(t, raw)["role"])

	status, _ = env.do(t, http.MethodPost, "/v1/users/", admin, map[string]string{
		"username": "carol", "email": "c@x.com", "role": "overlord",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = env.do(t, http.MethodPatch, "/v1/users/bob/", admin, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "admin", decode(t, raw)["role"])

	status, raw = env.do(t, http.MethodGet, "/v1/users/", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(raw, &listed))
	require.Len(t, listed, 3)
	assert.Equal(t, "alice", listed[0]["username"])

	status, _ = env.do(t, http.MethodDelete, "/v1/users/bob/", admin, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodGet, "/v1/users/bob/", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReviewPermissions(t *testing.T) {
	env := setupApp(t)
	admin := env.tokenFor(t, "root", models.RoleAdmin)
	alice := env.tokenFor(t, "alice", models.RoleUser)
	bob := env.tokenFor(t, "bob", models.RoleUser)
	moderator := env.tokenFor(t, "mod", models.RoleModerator)

	title := map[string]any{"name": "Dune", "year": 1965}
	status, _ := env.do(t, http.MethodPost, "/v1/titles/", "", title)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.do(t, http.MethodPost, "/v1/titles/", alice, title)
	assert.Equal(t, http.StatusForbidden, status)
	status, raw := env.do(t, http.MethodPost, "/v1/titles/", admin, title)
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode(t, raw)
	assert.Nil(t, created["rating"])
	titleID := created["id"].(string)
	reviews := "/v1/titles/" + titleID + "/reviews/"

	status, _ = env.do(t, http.MethodPost, reviews, "", map[string]any{"text": "great", "score": 9})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw = env.do(t, http.MethodPost, reviews, alice, map[string]any{"text": "great", "score": 9})
	require.Equal(t, http.StatusCreated, status, string(raw))
	review := decode(t, raw)
	assert.Equal(t, "alice", review["author"])
	reviewPath := reviews + review["id"].(string) + "/"

	status, _ = env.do(t, http.MethodPost, reviews, alice, map[string]any{"text": "again", "score": 5})
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw = env.do(t, http.MethodGet, reviews, "", nil)
	require.Equal(t, http.StatusOK, status)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(raw, &listed))
	assert.Len(t, listed, 1)

	status, _ = env.do(t, http.MethodGet, reviewPath, "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, raw = env.do(t, http.MethodPost, reviewPath+"comments/", bob, map[string]any{"text": "agreed"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	commentPath := reviewPath + "comments/" + decode(t, raw)["id"].(string) + "/"

	status, _ = env.do(t, http.MethodPatch, commentPath, alice, map[string]any{"text": "edited"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodDelete, commentPath, bob, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodDelete, reviewPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.do(t, http.MethodDelete, reviewPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = env.do(t, http.MethodPatch, reviewPath, alice, map[string]any{"score": 7})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.EqualValues(t, 7, decode(t, raw)["score"])

	status, raw = env.do(t, http.MethodPost, reviews, bob, map[string]any{"text": "fine", "score": 4})
	require.Equal(t, http.StatusCreated, status, string(raw))
	status, raw = env.do(t, http.MethodGet, "/v1/titles/"+titleID+"/", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 5.5, decode(t, raw)["rating"], 1e-9)

	status, _ = env.do(t, http.MethodDelete, reviewPath, moderator, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodGet, reviewPath, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
