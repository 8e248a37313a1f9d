package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"github.com/valyala/fasthttp/pprofhandler"

	apiHandler "github.com/fastygo/scheduler/api/handler"
	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/middleware"
)

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

type Handlers struct {
	Schedule *apiHandler.ScheduleHandler
	Health   *apiHandler.HealthHandler
}

// Options toggles the operational endpoints. A nil Metrics registry disables
// /metrics.
type Options struct {
	Metrics     *prometheus.Registry
	EnablePprof bool
}

func New(handlers Handlers, auth Middleware, opts Options) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	if opts.Metrics != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{EnableOpenMetrics: true}),
		))
	}
	if opts.EnablePprof {
		r.GET("/debug/pprof/{profile:*}", pprofhandler.PprofHandler)
	}

	adminOnly := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return auth(middleware.RequireRole(domain.RoleAdmin)(h))
	}

	api := r.Group("/api/v1/schedule")
	api.POST("/solve", auth(handlers.Schedule.Solve))
	api.POST("/runs", adminOnly(handlers.Schedule.CreateRun))
	api.GET("/runs", adminOnly(handlers.Schedule.ListRuns))
	api.GET("/runs/{id}", adminOnly(handlers.Schedule.GetRun))
	api.GET("/sessions", adminOnly(handlers.Schedule.Pending))

	return r
}
