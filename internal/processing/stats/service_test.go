package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linklytics/linklytics/internal/processing/links"
)

// --- Hand-written mocks ---

type mockCatalog struct {
	findByIDFn func(ctx context.Context, id string) (*links.Link, error)
	countAllFn func(ctx context.Context) (int64, error)
	recentFn   func(ctx context.Context, limit int64) ([]links.Link, error)
}

func (m *mockCatalog) FindByID(ctx context.Context, id string) (*links.Link, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockCatalog) CountAll(ctx context.Context) (int64, error) {
	return m.countAllFn(ctx)
}
func (m *mockCatalog) Recent(ctx context.Context, limit int64) ([]links.Link, error) {
	return m.recentFn(ctx, limit)
}

// mockAggregator returns canned values; individual fields can be overridden
// per-test. A non-nil err<Op> makes that operation fail.
type mockAggregator struct {
	total  int64
	unique int64

	devices   []DeviceCount
	countries []NameCount
	browsers  []VersionedCount
	oses      []VersionedCount
	referrers []ReferrerCount
	isps      []NameCount
	daily     []DailyCount
	hourly    []HourBucket
	popular   []PopularLink

	errCountByLink error
	errHourly      error

	dailySince time.Time
}

func (m *mockAggregator) CountAll(context.Context) (int64, error) { return m.total, nil }
func (m *mockAggregator) CountByLink(context.Context, string) (int64, error) {
	return m.total, m.errCountByLink
}
func (m *mockAggregator) CountUniqueIPs(context.Context, string) (int64, error) {
	return m.unique, nil
}
func (m *mockAggregator) DeviceCounts(context.Context, string) ([]DeviceCount, error) {
	return m.devices, nil
}
func (m *mockAggregator) CountryCounts(context.Context, string, int64, bool) ([]NameCount, error) {
	return m.countries, nil
}
func (m *mockAggregator) BrowserCounts(context.Context, string, int64) ([]VersionedCount, error) {
	return m.browsers, nil
}
func (m *mockAggregator) OSCounts(context.Context, string, int64) ([]VersionedCount, error) {
	return m.oses, nil
}
func (m *mockAggregator) ReferrerCounts(context.Context, string, int64) ([]ReferrerCount, error) {
	return m.referrers, nil
}
func (m *mockAggregator) ISPCounts(context.Context, string, int64) ([]NameCount, error) {
	return m.isps, nil
}
func (m *mockAggregator) DailyCounts(_ context.Context, _ string, since time.Time) ([]DailyCount, error) {
	m.dailySince = since
	return m.daily, nil
}
func (m *mockAggregator) HourlyCounts(context.Context, string) ([]HourBucket, error) {
	return m.hourly, m.errHourly
}
func (m *mockAggregator) PopularLinks(context.Context, int64) ([]PopularLink, error) {
	return m.popular, nil
}

func newTestService(catalog *mockCatalog, agg *mockAggregator) *Service {
	svc := NewService(catalog, agg, "https://sho.rt/")
	svc.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func activeLinkCatalog(link *links.Link) *mockCatalog {
	return &mockCatalog{
		findByIDFn: func(_ context.Context, id string) (*links.Link, error) {
			if id == link.ID {
				return link, nil
			}
			return nil, links.ErrNotFound
		},
	}
}

// --- conversionRate ---

func TestConversionRate(t *testing.T) {
	tests := []struct {
		name   string
		unique int64
		total  int64
		want   int
	}{
		{"no clicks", 0, 0, 0},
		{"all unique", 10, 10, 100},
		{"half unique", 5, 10, 50},
		{"rounds up", 1, 3, 33},
		{"rounds to nearest", 2, 3, 67},
		{"single click", 1, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conversionRate(tt.unique, tt.total)
			if got != tt.want {
				t.Errorf("conversionRate(%d, %d) = %d, want %d", tt.unique, tt.total, got, tt.want)
			}
		})
	}
}

// --- expandHours ---

func TestExpandHours(t *testing.T) {
	buckets := []HourBucket{
		{Hour: 0, Count: 3},
		{Hour: 9, Count: 12},
		{Hour: 23, Count: 1},
		{Hour: 24, Count: 99}, // out of range, dropped
		{Hour: -1, Count: 99}, // out of range, dropped
	}

	got := expandHours(buckets)
	if len(got) != 24 {
		t.Fatalf("expected 24 slots, got %d", len(got))
	}
	if got[0].Hour != "0:00" || got[0].Count != 3 {
		t.Errorf("slot 0: got %+v", got[0])
	}
	if got[9].Hour != "9:00" || got[9].Count != 12 {
		t.Errorf("slot 9: got %+v", got[9])
	}
	if got[23].Hour != "23:00" || got[23].Count != 1 {
		t.Errorf("slot 23: got %+v", got[23])
	}

	var sum int64
	for _, s := range got {
		sum += s.Count
	}
	if sum != 16 {
		t.Errorf("expected out-of-range buckets dropped, total = %d, want 16", sum)
	}
}

func TestExpandHours_Empty(t *testing.T) {
	got := expandHours(nil)
	if len(got) != 24 {
		t.Fatalf("expected 24 slots for empty input, got %d", len(got))
	}
	for i, s := range got {
		if s.Count != 0 {
			t.Errorf("slot %d: expected zero count, got %d", i, s.Count)
		}
	}
}

// --- Dashboard ---

func TestDashboard(t *testing.T) {
	created := time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC)
	catalog := &mockCatalog{
		countAllFn: func(context.Context) (int64, error) { return 7, nil },
		recentFn: func(_ context.Context, limit int64) ([]links.Link, error) {
			if limit != 10 {
				t.Errorf("expected recent limit 10, got %d", limit)
			}
			return []links.Link{{ID: "abcd1234", OriginalURL: "https://example.com", CreatedAt: created}}, nil
		},
	}
	agg := &mockAggregator{
		total:     42,
		devices:   []DeviceCount{{Type: "desktop", Count: 30}},
		countries: []NameCount{{Name: "BR", Count: 20}},
		daily:     []DailyCount{{Date: "2025-02-28", Count: 5}},
		popular:   []PopularLink{{LinkID: "abcd1234", OriginalURL: "https://example.com", Clicks: 42}},
	}

	svc := newTestService(catalog, agg)

	sum, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if sum.Totals.Links != 7 || sum.Totals.Clicks != 42 {
		t.Errorf("totals: got %+v", sum.Totals)
	}
	if len(sum.RecentLinks) != 1 {
		t.Fatalf("expected 1 recent link, got %d", len(sum.RecentLinks))
	}
	if sum.RecentLinks[0].ShortURL != "https://sho.rt/link/abcd1234" {
		t.Errorf("got shortUrl %q", sum.RecentLinks[0].ShortURL)
	}
	if len(sum.PopularLinks) != 1 || sum.PopularLinks[0].Clicks != 42 {
		t.Errorf("popular: got %+v", sum.PopularLinks)
	}

	wantSince := time.Date(2025, 1, 30, 12, 0, 0, 0, time.UTC)
	if !agg.dailySince.Equal(wantSince) {
		t.Errorf("daily window start = %v, want %v", agg.dailySince, wantSince)
	}
}

func TestDashboard_AggregationFailure(t *testing.T) {
	catalog := &mockCatalog{
		countAllFn: func(context.Context) (int64, error) {
			return 0, errors.New("boom")
		},
	}

	svc := newTestService(catalog, &mockAggregator{})

	_, err := svc.Dashboard(context.Background())
	if !errors.Is(err, ErrAggregation) {
		t.Fatalf("expected ErrAggregation, got: %v", err)
	}
}

// --- LinkStats ---

func TestLinkStats(t *testing.T) {
	link := &links.Link{
		ID:          "abcd1234",
		OriginalURL: "https://example.com",
		Alias:       "docs",
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	agg := &mockAggregator{
		total:     10,
		unique:    4,
		devices:   []DeviceCount{{Type: "mobile", Count: 6}, {Type: "desktop", Count: 4}},
		browsers:  []VersionedCount{{Name: "Chrome", Version: "120.0", Count: 8}},
		oses:      []VersionedCount{{Name: "Android", Version: "14", Count: 6}},
		countries: []NameCount{{Name: "BR", Count: 7}},
		referrers: []ReferrerCount{{URL: "https://google.com", Count: 5}},
		isps:      []NameCount{{Name: "Vivo", Count: 3}},
		daily:     []DailyCount{{Date: "2025-02-28", Count: 2}},
		hourly:    []HourBucket{{Hour: 14, Count: 9}},
	}

	svc := newTestService(activeLinkCatalog(link), agg)

	got, err := svc.LinkStats(context.Background(), "abcd1234")
	if err != nil {
		t.Fatal(err)
	}

	if got.Link.ID != "abcd1234" || got.Link.Alias != "docs" {
		t.Errorf("link summary: got %+v", got.Link)
	}
	if got.Link.ShortURL != "https://sho.rt/link/abcd1234" {
		t.Errorf("got shortUrl %q", got.Link.ShortURL)
	}
	if got.Clicks.Total != 10 || got.Clicks.Unique != 4 {
		t.Errorf("clicks: got %+v", got.Clicks)
	}
	if got.Clicks.ConversionRate != 40 {
		t.Errorf("conversion rate = %d, want 40", got.Clicks.ConversionRate)
	}
	if len(got.HourlyTraffic) != 24 {
		t.Fatalf("expected 24 hourly slots, got %d", len(got.HourlyTraffic))
	}
	if got.HourlyTraffic[14].Count != 9 {
		t.Errorf("hour 14: got %+v", got.HourlyTraffic[14])
	}
	if len(got.Networks) != 1 || got.Networks[0].Name != "Vivo" {
		t.Errorf("networks: got %+v", got.Networks)
	}
}

func TestLinkStats_ZeroClicks(t *testing.T) {
	link := &links.Link{ID: "abcd1234", OriginalURL: "https://example.com"}

	svc := newTestService(activeLinkCatalog(link), &mockAggregator{})

	got, err := svc.LinkStats(context.Background(), "abcd1234")
	if err != nil {
		t.Fatal(err)
	}
	if got.Clicks.Total != 0 || got.Clicks.Unique != 0 || got.Clicks.ConversionRate != 0 {
		t.Errorf("expected zeroed click totals, got %+v", got.Clicks)
	}
	if len(got.HourlyTraffic) != 24 {
		t.Errorf("expected 24 hourly slots even with no clicks, got %d", len(got.HourlyTraffic))
	}
}

func TestLinkStats_NotFound(t *testing.T) {
	catalog := &mockCatalog{
		findByIDFn: func(context.Context, string) (*links.Link, error) {
			return nil, links.ErrNotFound
		},
	}

	svc := newTestService(catalog, &mockAggregator{})

	_, err := svc.LinkStats(context.Background(), "missing1")
	if !errors.Is(err, links.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestLinkStats_SubQueryFailureFailsRequest(t *testing.T) {
	link := &links.Link{ID: "abcd1234", OriginalURL: "https://example.com"}
	agg := &mockAggregator{errHourly: errors.New("cursor timeout")}

	svc := newTestService(activeLinkCatalog(link), agg)

	_, err := svc.LinkStats(context.Background(), "abcd1234")
	if !errors.Is(err, ErrAggregation) {
		t.Fatalf("expected ErrAggregation, got: %v", err)
	}
}

func TestLinkStats_TrimsID(t *testing.T) {
	link := &links.Link{ID: "abcd1234", OriginalURL: "https://example.com"}

	svc := newTestService(activeLinkCatalog(link), &mockAggregator{})

	if _, err := svc.LinkStats(context.Background(), "  abcd1234  "); err != nil {
		t.Fatalf("expected trimmed id to resolve, got: %v", err)
	}
}
