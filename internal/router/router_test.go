package router

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/scheduler/api/handler"
	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/infrastructure/metrics"
	"github.com/fastygo/scheduler/internal/infrastructure/monitor"
	"github.com/fastygo/scheduler/internal/middleware"
	"github.com/fastygo/scheduler/usecase/schedule"
)

const secret = "router-secret"

type healthy struct{}

func (healthy) GetStatus() monitor.Status { return monitor.Status{PostgreSQL: true, Redis: true} }

func token(t *testing.T, role domain.Role) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: "u-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newRouter() fasthttp.RequestHandler {
	uc := schedule.New(schedule.Deps{}, schedule.Config{}, nil)
	r := New(Handlers{
		Schedule: apiHandler.NewScheduleHandler(uc, nil, nil),
		Health:   apiHandler.NewHealthHandler(healthy{}, nil, nil),
	}, middleware.JWTAuth(secret, "", nil), Options{Metrics: metrics.New(nil).Registry()})
	return r.Handler
}

func serve(h fasthttp.RequestHandler, method, path, bearer, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if bearer != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+bearer)
	}
	ctx.Request.SetBodyString(body)
	h(&ctx)
	return &ctx
}

func TestRoutes(t *testing.T) {
	h := newRouter()
	solve := `{"sessions":[{"id":"A","date":"2024-01-01","start_time":"09:00","end_time":"10:00"}],"therapists":[{"id":"R1"}]}`

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health", "", "").Response.StatusCode())
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/metrics", "", "").Response.StatusCode())
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/debug/pprof/heap", "", "").Response.StatusCode())

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodPost, "/api/v1/schedule/solve", "", solve).Response.StatusCode())
	assert.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/v1/schedule/solve", token(t, domain.RoleTherapist), solve).Response.StatusCode())

	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodPost, "/api/v1/schedule/runs", token(t, domain.RoleParent), "").Response.StatusCode())
	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "/api/v1/schedule/runs/abc", token(t, domain.RoleTherapist), "").Response.StatusCode())
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/v1/schedule/runs/abc", token(t, domain.RoleAdmin), "").Response.StatusCode())

	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "/api/v1/schedule/sessions", token(t, domain.RoleParent), "").Response.StatusCode())
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodGet, "/api/v1/schedule/sessions", token(t, domain.RoleAdmin), "").Response.StatusCode())
}
