package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tabletop_session/internal/repository/memory"
	"tabletop_session/internal/service"
	"tabletop_session/internal/utils"
	"tabletop_session/pkg/config"
)

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt := utils.NewJWTManager("test-secret", time.Hour)
	services := service.NewServices(memory.NewStore().Repositories(), service.Options{
		JWT:        jwt,
		BcryptCost: bcrypt.MinCost,
	})
	r := gin.New()
	SetupRoutes(r, services, jwt, nil, config.RateLimitConfig{})
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func register(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	code, _ := do(t, r, http.MethodPost, "/api/register", "", gin.H{"email": email, "nickname": email[:3], "password": "password123"})
	require.Equal(t, http.StatusCreated, code)
	code, body := do(t, r, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, code)
	return body["token"].(string)
}

func TestRoutes_RoomFlow(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice@example.com")
	bob := register(t, r, "bob@example.com")
	carol := register(t, r, "carol@example.com")

	code, body := do(t, r, http.MethodPost, "/api/rooms", alice, gin.H{"name": "Test Room", "password": "1234", "maxParticipants": 2})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Room created", body["message"])
	room := body["room"].(map[string]any)
	roomPath := "/api/rooms/" + room["id"].(string)
	assert.NotContains(t, room, "password")

	code, body = do(t, r, http.MethodPost, roomPath+"/join", bob, gin.H{"password": "1234"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Joined room", body["message"])
	assert.Equal(t, float64(2), body["room"].(map[string]any)["currentParticipants"])

	code, body = do(t, r, http.MethodPost, roomPath+"/join", carol, gin.H{"password": "1234"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ROOM_FULL", body["code"])

	code, body = do(t, r, http.MethodPost, roomPath+"/leave", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "CANNOT_LEAVE_AS_CREATOR", body["code"])

	code, body = do(t, r, http.MethodGet, roomPath+"/participants", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["participants"], 2)

	code, _ = do(t, r, http.MethodDelete, roomPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = do(t, r, http.MethodDelete, roomPath, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Room deleted", body["message"])

	code, body = do(t, r, http.MethodPost, roomPath+"/join", carol, gin.H{"password": "1234"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ROOM_JOIN_CONFLICT", body["code"])

	code, _ = do(t, r, http.MethodGet, roomPath, alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRoutes_Validation(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice@example.com")

	code, _ := do(t, r, http.MethodPost, "/api/rooms", alice, gin.H{"name": "x", "password": "12", "maxParticipants": 2})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/api/rooms", alice, gin.H{"name": "x", "password": "1234", "maxParticipants": 9})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := do(t, r, http.MethodGet, "/api/rooms/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_ROOM_ID", body["code"])
}

func TestRoutes_AuthRequired(t *testing.T) {
	r := newTestRouter(t)

	code, _ := do(t, r, http.MethodGet, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, r, http.MethodGet, "/api/rooms", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := do(t, r, http.MethodPost, "/api/login", "", gin.H{"email": "nobody@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	code, body = do(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRoutes_DuplicateRegistration(t *testing.T) {
	r := newTestRouter(t)
	register(t, r, "alice@example.com")

	code, body := do(t, r, http.MethodPost, "/api/register", "", gin.H{"email": "alice@example.com", "nickname": "again", "password": "password123"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "EMAIL_TAKEN", body["code"])
}

func TestRoutes_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt := utils.NewJWTManager("test-secret", time.Hour)
	services := service.NewServices(memory.NewStore().Repositories(), service.Options{JWT: jwt, BcryptCost: bcrypt.MinCost})
	r := gin.New()
	SetupRoutes(r, services, jwt, denyAll{}, config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Minute})

	code, _ := do(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}
