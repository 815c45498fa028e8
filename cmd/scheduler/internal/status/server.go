// Package status serves the scheduler's health, metrics, and operator API.
package status

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/jobs"
)

type JobStore interface {
	jobs.Enqueuer
	GetScrapeJob(ctx context.Context, id string) (*db.ScrapeJob, error)
}

type SuggestionLister interface {
	ListSuggestions(ctx context.Context, tenantID string, status db.SuggestionStatus) ([]*db.ChannelSuggestion, error)
}

type GraphSource interface {
	Get(ctx context.Context, tenantID string) (*db.CachedGraph, error)
}

type Worker interface {
	Status() jobs.Status
}

type Options struct {
	DefaultLookbackDays int
	InitialLookbackDays int
}

type Server struct {
	*echo.Echo

	opts        Options
	jobs        JobStore
	suggestions SuggestionLister
	graphs      GraphSource
	progress    *jobs.ProgressMap
	worker      Worker
}

type requestValidator struct {
	v *validator.Validate
}

func (r *requestValidator) Validate(i any) error {
	return r.v.Struct(i)
}

func NewServer(opts Options, js JobStore, sl SuggestionLister, graphs GraphSource, progress *jobs.ProgressMap, worker Worker) *Server {
	if progress == nil {
		progress = jobs.NewProgressMap()
	}
	s := &Server{
		Echo:        echo.New(),
		opts:        opts,
		jobs:        js,
		suggestions: sl,
		graphs:      graphs,
		progress:    progress,
		worker:      worker,
	}
	s.Validator = &requestValidator{v: validator.New()}
	s.setupMiddleware()
	s.registerRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("64K"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/healthz", "/metrics":
				return true
			default:
				return false
			}
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
}

func (s *Server) registerRoutes() {
	s.GET("/healthz", HandleHealth(s.worker))
	s.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.Group("/api")
	api.POST("/jobs", HandleSubmitJob(s.jobs, s.opts))
	api.GET("/jobs/:id", HandleJobStatus(s.jobs, s.progress))
	api.GET("/tenants/:id/graph", HandleGraph(s.graphs))
	api.GET("/tenants/:id/graph/report", HandleGraphReport(s.graphs))
	api.GET("/tenants/:id/suggestions", HandleSuggestions(s.suggestions))
}
