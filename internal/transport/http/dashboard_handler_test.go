package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linklytics/linklytics/internal/constants"
	"github.com/linklytics/linklytics/internal/processing/links"
	"github.com/linklytics/linklytics/internal/processing/stats"
)

type mockStatsService struct {
	dashboardFn func(ctx context.Context) (*stats.DashboardSummary, error)
	linkStatsFn func(ctx context.Context, linkID string) (*stats.LinkStats, error)
}

func (m *mockStatsService) Dashboard(ctx context.Context) (*stats.DashboardSummary, error) {
	return m.dashboardFn(ctx)
}
func (m *mockStatsService) LinkStats(ctx context.Context, linkID string) (*stats.LinkStats, error) {
	return m.linkStatsFn(ctx, linkID)
}

func TestDashboard(t *testing.T) {
	svc := &mockStatsService{
		dashboardFn: func(context.Context) (*stats.DashboardSummary, error) {
			return &stats.DashboardSummary{
				Totals: stats.Totals{Links: 3, Clicks: 120},
				Devices: []stats.DeviceCount{
					{Type: "mobile", Count: 80},
					{Type: "desktop", Count: 40},
				},
			}, nil
		},
	}
	h := NewDashboardHandler(testConfig(), svc)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Success bool                   `json:"success"`
		Data    stats.DashboardSummary `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Data.Totals.Links != 3 || resp.Data.Totals.Clicks != 120 {
		t.Errorf("totals: got %+v", resp.Data.Totals)
	}
	if len(resp.Data.Devices) != 2 {
		t.Errorf("devices: got %+v", resp.Data.Devices)
	}
}

func TestDashboard_AggregationFailure(t *testing.T) {
	svc := &mockStatsService{
		dashboardFn: func(context.Context) (*stats.DashboardSummary, error) {
			return nil, stats.ErrAggregation
		},
	}
	h := NewDashboardHandler(testConfig(), svc)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if body := decodeError(t, rec); body.Code != constants.CodeAggregationFailed {
		t.Errorf("got code %q, want %q", body.Code, constants.CodeAggregationFailed)
	}
}

func TestLinkStats(t *testing.T) {
	svc := &mockStatsService{
		linkStatsFn: func(_ context.Context, linkID string) (*stats.LinkStats, error) {
			if linkID != "aZ3kP9qR" {
				return nil, links.ErrNotFound
			}
			return &stats.LinkStats{
				Link:   stats.LinkSummary{ID: linkID, ShortURL: "https://sho.rt/link/" + linkID},
				Clicks: stats.ClickTotals{Total: 10, Unique: 4, ConversionRate: 40},
			}, nil
		},
	}
	h := NewDashboardHandler(testConfig(), svc)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/link/aZ3kP9qR", nil)
	req.SetPathValue("id", "aZ3kP9qR")
	rec := httptest.NewRecorder()
	h.LinkStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Success bool            `json:"success"`
		Data    stats.LinkStats `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Link.ID != "aZ3kP9qR" {
		t.Errorf("got link id %q", resp.Data.Link.ID)
	}
	if resp.Data.Clicks.ConversionRate != 40 {
		t.Errorf("got conversion rate %d", resp.Data.Clicks.ConversionRate)
	}
}

func TestLinkStats_NotFound(t *testing.T) {
	svc := &mockStatsService{
		linkStatsFn: func(context.Context, string) (*stats.LinkStats, error) {
			return nil, links.ErrNotFound
		},
	}
	h := NewDashboardHandler(testConfig(), svc)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/link/missing1", nil)
	req.SetPathValue("id", "missing1")
	rec := httptest.NewRecorder()
	h.LinkStats(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestLinkStats_DevelopmentDetails(t *testing.T) {
	svc := &mockStatsService{
		linkStatsFn: func(context.Context, string) (*stats.LinkStats, error) {
			return nil, stats.ErrAggregation
		},
	}
	cfg := testConfig()
	cfg.App.Env = "development"
	h := NewDashboardHandler(cfg, svc)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/link/aZ3kP9qR", nil)
	req.SetPathValue("id", "aZ3kP9qR")
	rec := httptest.NewRecorder()
	h.LinkStats(rec, req)

	var body struct {
		Details string `json:"details"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Details == "" {
		t.Error("expected error details in development mode")
	}
}
