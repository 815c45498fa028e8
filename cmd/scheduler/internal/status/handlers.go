package status

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/jobs"
	"thirdcoast.systems/scout/internal/topicgraph"
	"thirdcoast.systems/scout/pkg/utils/markdown"
)

func requireUUIDParam(c echo.Context, param string) (string, error) {
	u, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
	}
	return u.String(), nil
}

func HandleHealth(w Worker) echo.HandlerFunc {
	return func(c echo.Context) error {
		st := jobs.Status{State: jobs.StateIdle}
		if w != nil {
			st = w.Status()
		}
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "worker": st})
	}
}

func HandleSubmitJob(js JobStore, opts Options) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req jobs.SubmitRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
		}
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		ctx := c.Request().Context()
		job, err := jobs.Submit(ctx, js, req, opts.DefaultLookbackDays, opts.InitialLookbackDays)
		switch {
		case errors.Is(err, db.ErrDuplicatePendingJob):
			return echo.NewHTTPError(http.StatusConflict, "a job for this channel is already pending")
		case err != nil:
			slog.Error("failed to submit job", "tenant_id", req.TenantID, "handle", req.Handle, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to submit job")
		}
		return c.JSON(http.StatusCreated, job)
	}
}

type jobResponse struct {
	*db.ScrapeJob
	Progress *jobs.Progress `json:"progress,omitempty"`
}

func HandleJobStatus(js JobStore, progress *jobs.ProgressMap) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := requireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		job, err := js.GetScrapeJob(c.Request().Context(), id)
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		if err != nil {
			slog.Error("failed to load job", "job_id", id, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job")
		}
		resp := jobResponse{ScrapeJob: job}
		if job.Status == db.JobStatusRunning {
			if p, ok := progress.Get(id); ok {
				resp.Progress = &p
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func loadGraph(c echo.Context, graphs GraphSource) (string, *db.CachedGraph, error) {
	tenantID, err := requireUUIDParam(c, "id")
	if err != nil {
		return "", nil, err
	}
	cg, err := graphs.Get(c.Request().Context(), tenantID)
	if err != nil {
		slog.Error("failed to load topic graph", "tenant_id", tenantID, "error", err)
		return "", nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load graph")
	}
	if cg == nil {
		return "", nil, echo.NewHTTPError(http.StatusNotFound, "no graph built for tenant")
	}
	return tenantID, cg, nil
}

func HandleGraph(graphs GraphSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, cg, err := loadGraph(c, graphs)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{
			"built_at": cg.BuiltAt.UTC().Format(time.RFC3339),
			"graph":    cg.Graph,
		})
	}
}

func HandleGraphReport(graphs GraphSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, cg, err := loadGraph(c, graphs)
		if err != nil {
			return err
		}
		limit := 10
		if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
			limit = v
		}
		md := markdown.NewMarkdown(topicgraph.Report(cg.Graph, cg.BuiltAt, limit))
		return c.HTML(http.StatusOK, md.Document("Topic report "+tenantID))
	}
}

func HandleSuggestions(sl SuggestionLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, err := requireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		status := db.SuggestionStatus(c.QueryParam("status"))
		switch status {
		case "", db.SuggestionPending, db.SuggestionAccepted, db.SuggestionDismissed:
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		out, err := sl.ListSuggestions(c.Request().Context(), tenantID, status)
		if err != nil {
			slog.Error("failed to list suggestions", "tenant_id", tenantID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to list suggestions")
		}
		if out == nil {
			out = []*db.ChannelSuggestion{}
		}
		return c.JSON(http.StatusOK, out)
	}
}
