package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/linklytics/linklytics/internal/config"
	"github.com/linklytics/linklytics/internal/constants"
	"github.com/linklytics/linklytics/internal/infrastructure/logger"
	"github.com/linklytics/linklytics/internal/processing/links"
	"github.com/linklytics/linklytics/internal/processing/stats"
	"github.com/linklytics/linklytics/pkg/httputils"
	"go.uber.org/zap"
)

// StatsService is the read side the dashboard handlers consume.
type StatsService interface {
	Dashboard(ctx context.Context) (*stats.DashboardSummary, error)
	LinkStats(ctx context.Context, linkID string) (*stats.LinkStats, error)
}

type DashboardHandler struct {
	cfg *config.Config
	svc StatsService
}

func NewDashboardHandler(cfg *config.Config, svc StatsService) *DashboardHandler {
	return &DashboardHandler{cfg: cfg, svc: svc}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Dashboard(r.Context())
	if err != nil {
		logger.Error("failed to compute dashboard summary", zap.Error(err))
		h.writeAggregationError(w, r, err)
		return
	}

	httputils.WriteData(w, r, http.StatusOK, summary)
}

func (h *DashboardHandler) LinkStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	linkStats, err := h.svc.LinkStats(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, links.ErrNotFound):
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		default:
			logger.Error("failed to compute link stats", zap.Error(err), zap.String("id", id))
			h.writeAggregationError(w, r, err)
		}
		return
	}

	httputils.WriteData(w, r, http.StatusOK, linkStats)
}

// writeAggregationError keeps diagnostic detail out of production responses.
func (h *DashboardHandler) writeAggregationError(w http.ResponseWriter, r *http.Request, err error) {
	details := ""
	if h.cfg.App.Env == "development" {
		details = err.Error()
	}
	httputils.WriteAPIErrorDetails(w, r, constants.ErrAggregationFailed, details)
}
