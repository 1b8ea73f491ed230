package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/studyplay/backend/internal/auth"
	"github.com/studyplay/backend/internal/config"
	"github.com/studyplay/backend/internal/matchmaking"
	"github.com/studyplay/backend/internal/ws"
)

func newTestRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: "test-secret", Environment: "test", CORSOrigin: "*"}
	store := matchmaking.NewMemoryStore(time.Minute)
	service := matchmaking.NewService(store)
	reconciler := matchmaking.NewReconciler(service, 20*time.Millisecond, time.Second)
	t.Cleanup(reconciler.StopAll)

	hub := ws.NewHub()
	bridge := ws.NewEventBridge(nil, hub)
	gateway := ws.NewGateway(service, reconciler, hub, bridge, cfg)

	router := gin.New()
	SetupRoutes(router, service, gateway, cfg)
	return router, cfg
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
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
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", decode(t, w)["status"])
}

func TestQueueRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/matchmaking/queue", "", gin.H{"gameId": "PingPong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/matchmaking/queue", "garbage", gin.H{"gameId": "PingPong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueueRequiresGameID(t *testing.T) {
	router, cfg := newTestRouter(t)
	token, err := auth.Sign("u1", cfg.JWTSecret, time.Minute)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/api/v1/matchmaking/queue", token, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueCancelStatusFlow(t *testing.T) {
	router, cfg := newTestRouter(t)

	token1, err := auth.Sign("u1", cfg.JWTSecret, time.Minute)
	require.NoError(t, err)
	token2, err := auth.Sign("u2", cfg.JWTSecret, time.Minute)
	require.NoError(t, err)

	// u1 queues and waits.
	w := doJSON(t, router, http.MethodPost, "/api/v1/matchmaking/queue", token1, gin.H{"gameId": "PingPong"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["searching"])

	// u2 queues and matches u1 synchronously.
	w = doJSON(t, router, http.MethodPost, "/api/v1/matchmaking/queue", token2, gin.H{"gameId": "PingPong"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.Equal(t, false, resp["searching"])
	require.Equal(t, "u1", resp["opponentId"])
	matchID := resp["matchId"]
	require.NotEmpty(t, matchID)

	// u1 recovers the match by polling status.
	w = doJSON(t, router, http.MethodGet, "/api/v1/matchmaking/status", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	require.Equal(t, "matched", status["state"])
	require.Equal(t, matchID, status["matchId"])
	require.Equal(t, "u2", status["opponentId"])
	require.Equal(t, "PingPong", status["gameId"])
}

func TestCancelEndpointIsIdempotent(t *testing.T) {
	router, cfg := newTestRouter(t)
	token, err := auth.Sign("u1", cfg.JWTSecret, time.Minute)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/api/v1/matchmaking/queue", token, gin.H{"gameId": "PingPong"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/matchmaking/queue", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, router, http.MethodDelete, "/api/v1/matchmaking/queue", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/matchmaking/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "not_searching", decode(t, w)["state"])
}
