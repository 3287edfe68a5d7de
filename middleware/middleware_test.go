package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/utils"
)

var secret = []byte("test-secret")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	if _, err := GetUserIDFromContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	role, _ := GetUserRoleFromContext(r.Context())
	w.Header().Set("X-User", string(role))
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticate(t *testing.T) {
	handler := Authenticate(secret, discardLogger())(http.HandlerFunc(whoAmI))
	valid, err := utils.GenerateJWT(secret, 7, "organizer", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateJWT(secret, 7, "organizer", -time.Hour)
	require.NoError(t, err)
	foreign, err := utils.GenerateJWT([]byte("other"), 7, "organizer", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"valid bearer", "Bearer " + valid, "", http.StatusOK},
		{"lowercase scheme", "bearer " + valid, "", http.StatusOK},
		{"query token", "", "?token=" + valid, http.StatusOK},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong key", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "organizer", rec.Header().Get("X-User"))
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(models.RoleAdmin, models.RoleOrganizer)(http.HandlerFunc(whoAmI))

	serve := func(ctx context.Context) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(context.Background()))
	assert.Equal(t, http.StatusForbidden, serve(WithClaims(context.Background(), jwt.MapClaims{"user_id": float64(1), "role": "player"})))
	assert.Equal(t, http.StatusOK, serve(WithClaims(context.Background(), jwt.MapClaims{"user_id": float64(1), "role": "admin"})))
	assert.Equal(t, http.StatusUnauthorized, serve(WithClaims(context.Background(), jwt.MapClaims{"user_id": float64(1), "role": "root"})))
}

func TestGetUserIDFromContext(t *testing.T) {
	tests := []struct {
		name    string
		claim   interface{}
		want    int
		wantErr bool
	}{
		{"float", float64(12), 12, false},
		{"string", "12", 12, false},
		{"fraction", 1.5, 0, true},
		{"zero", float64(0), 0, true},
		{"bool", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithClaims(context.Background(), jwt.MapClaims{"user_id": tt.claim})
			got, err := GetUserIDFromContext(ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := GetUserIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoClaims)
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Minute), 2)
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	hit := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.1:5001").Code)
	blocked := hit("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2:5000").Code, "other clients have their own bucket")
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	limiter.Allow("a")
	clock = clock.Add(10 * time.Minute)
	limiter.Allow("b")

	assert.Equal(t, 1, limiter.Cleanup(5*time.Minute))
	assert.Len(t, limiter.limiters, 1)
}
