package routes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Dosada05/sabo-arena/brackets"
	"github.com/Dosada05/sabo-arena/handlers"
	"github.com/Dosada05/sabo-arena/middleware"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/services"
	"github.com/Dosada05/sabo-arena/utils"
)

var secret = []byte("routes-secret")

type stubDashboard struct{}

func (stubDashboard) GetStats(context.Context) (models.DashboardStats, error) {
	return models.DashboardStats{UsersTotal: 42}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := brackets.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Auth:       handlers.NewAuthHandler(nil),
		User:       handlers.NewUserHandler(nil),
		Challenge:  handlers.NewChallengeHandler(services.NewChallengeService(nil, nil, nil, nil, nil, time.Hour, logger)),
		Tournament: handlers.NewTournamentHandler(nil),
		Rank:       handlers.NewRankHandler(nil),
		Admin:      handlers.NewAdminHandler(nil),
		Dashboard:  handlers.NewDashboardHandler(stubDashboard{}),
		WebSocket:  handlers.NewWebSocketHandler(hub, []string{"*"}, logger),
	}, Options{
		JWTSecret:      secret,
		AllowedOrigins: []string{"*"},
		AuthLimiter:    middleware.NewIPRateLimiter(rate.Every(time.Hour), 1),
		Logger:         logger,
	})
	return router
}

func token(t *testing.T, id int, role models.UserRole) string {
	t.Helper()
	tok, err := utils.GenerateJWT(secret, id, string(role), time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestRoutes_AdminRequiresAdminRole(t *testing.T) {
	router := newTestRouter(t)

	serve := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, serve("").Code)
	assert.Equal(t, http.StatusForbidden, serve(token(t, 1, models.RolePlayer)).Code)
	assert.Equal(t, http.StatusForbidden, serve(token(t, 2, models.RoleOrganizer)).Code)

	rec := serve(token(t, 3, models.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"users_total":42`)
}

func TestRoutes_StaffOnlyTournamentCreation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tournaments", strings.NewReader(`{}`))
	req.Header.Set("Authorization", token(t, 1, models.RolePlayer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/healthz",
		"/api/v1/handicap?challenger_rank=K&opponent_rank=I&stake=100",
		"/swagger/doc.json",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRoutes_AuthIsRateLimited(t *testing.T) {
	router := newTestRouter(t)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, login(), "first attempt reaches the handler")
	assert.Equal(t, http.StatusTooManyRequests, login())
}
