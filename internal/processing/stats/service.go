package stats

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/linklytics/linklytics/internal/processing/links"
	"golang.org/x/sync/errgroup"
)

const (
	recentLinksLimit  = 10
	popularLinksLimit = 5
	countryLimit      = 10
	browserLimit      = 10
	referrerLimit     = 10
	osLimit           = 5
	ispLimit          = 5
	timelineDays      = 30
)

// Service computes dashboard and per-link analytics on demand. Every call
// recomputes over the live event log; nothing is cached or maintained
// incrementally.
type Service struct {
	catalog LinkCatalog
	clicks  ClickAggregator
	baseURL string
	now     func() time.Time
}

func NewService(catalog LinkCatalog, clicks ClickAggregator, baseURL string) *Service {
	return &Service{
		catalog: catalog,
		clicks:  clicks,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Dashboard assembles the all-links summary view.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	totalLinks, err := s.catalog.CountAll(ctx)
	if err != nil {
		return nil, aggErr("count links", err)
	}
	totalClicks, err := s.clicks.CountAll(ctx)
	if err != nil {
		return nil, aggErr("count clicks", err)
	}

	recent, err := s.catalog.Recent(ctx, recentLinksLimit)
	if err != nil {
		return nil, aggErr("recent links", err)
	}

	popular, err := s.clicks.PopularLinks(ctx, popularLinksLimit)
	if err != nil {
		return nil, aggErr("popular links", err)
	}

	devices, err := s.clicks.DeviceCounts(ctx, "")
	if err != nil {
		return nil, aggErr("device distribution", err)
	}

	countries, err := s.clicks.CountryCounts(ctx, "", countryLimit, false)
	if err != nil {
		return nil, aggErr("country distribution", err)
	}

	daily, err := s.clicks.DailyCounts(ctx, "", s.windowStart())
	if err != nil {
		return nil, aggErr("daily clicks", err)
	}

	recentSummaries := make([]LinkSummary, 0, len(recent))
	for _, l := range recent {
		recentSummaries = append(recentSummaries, s.linkSummary(&l))
	}

	return &DashboardSummary{
		Totals:       Totals{Links: totalLinks, Clicks: totalClicks},
		RecentLinks:  recentSummaries,
		PopularLinks: popular,
		Devices:      devices,
		Countries:    countries,
		DailyClicks:  daily,
	}, nil
}

// LinkStats assembles the single-link view. The ten aggregate sub-queries
// run concurrently; any failure fails the whole request.
func (s *Service) LinkStats(ctx context.Context, linkID string) (*LinkStats, error) {
	link, err := s.catalog.FindByID(ctx, strings.TrimSpace(linkID))
	if err != nil {
		return nil, err
	}

	var (
		total     int64
		unique    int64
		devices   []DeviceCount
		browsers  []VersionedCount
		countries []NameCount
		referrers []ReferrerCount
		timeline  []DailyCount
		hourly    []HourBucket
		oses      []VersionedCount
		isps      []NameCount
	)

	g, gctx := errgroup.WithContext(ctx)
	id := link.ID

	g.Go(func() (err error) {
		total, err = s.clicks.CountByLink(gctx, id)
		return wrapAgg("total clicks", err)
	})
	g.Go(func() (err error) {
		unique, err = s.clicks.CountUniqueIPs(gctx, id)
		return wrapAgg("unique clicks", err)
	})
	g.Go(func() (err error) {
		devices, err = s.clicks.DeviceCounts(gctx, id)
		return wrapAgg("device distribution", err)
	})
	g.Go(func() (err error) {
		browsers, err = s.clicks.BrowserCounts(gctx, id, browserLimit)
		return wrapAgg("browser distribution", err)
	})
	g.Go(func() (err error) {
		countries, err = s.clicks.CountryCounts(gctx, id, countryLimit, true)
		return wrapAgg("country distribution", err)
	})
	g.Go(func() (err error) {
		referrers, err = s.clicks.ReferrerCounts(gctx, id, referrerLimit)
		return wrapAgg("referrer distribution", err)
	})
	g.Go(func() (err error) {
		timeline, err = s.clicks.DailyCounts(gctx, id, s.windowStart())
		return wrapAgg("daily timeline", err)
	})
	g.Go(func() (err error) {
		hourly, err = s.clicks.HourlyCounts(gctx, id)
		return wrapAgg("hourly traffic", err)
	})
	g.Go(func() (err error) {
		oses, err = s.clicks.OSCounts(gctx, id, osLimit)
		return wrapAgg("os distribution", err)
	})
	g.Go(func() (err error) {
		isps, err = s.clicks.ISPCounts(gctx, id, ispLimit)
		return wrapAgg("network distribution", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &LinkStats{
		Link: s.linkSummary(link),
		Clicks: ClickTotals{
			Total:          total,
			Unique:         unique,
			ConversionRate: conversionRate(unique, total),
		},
		Devices:          devices,
		Browsers:         browsers,
		Countries:        countries,
		Referrers:        referrers,
		Timeline:         timeline,
		HourlyTraffic:    expandHours(hourly),
		OperatingSystems: oses,
		Networks:         isps,
	}, nil
}

// windowStart is the inclusive lower bound of the trailing 30-day window
// used by both daily series.
func (s *Service) windowStart() time.Time {
	return s.now().UTC().AddDate(0, 0, -timelineDays)
}

func (s *Service) linkSummary(l *links.Link) LinkSummary {
	return LinkSummary{
		ID:          l.ID,
		OriginalURL: l.OriginalURL,
		Alias:       l.Alias,
		ShortURL:    s.baseURL + "/link/" + l.ID,
		CreatedAt:   l.CreatedAt,
		ExpiresAt:   l.ExpiresAt,
	}
}

// conversionRate is round(unique/total*100), 0 when there are no clicks.
func conversionRate(unique, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(unique) / float64(total) * 100))
}

// expandHours turns sparse hour buckets into the fixed 24-slot series.
// Hours outside 0-23 are dropped rather than panicking on bad data.
func expandHours(buckets []HourBucket) []HourCount {
	counts := make([]int64, 24)
	for _, b := range buckets {
		if b.Hour < 0 || b.Hour > 23 {
			continue
		}
		counts[b.Hour] = b.Count
	}

	out := make([]HourCount, 24)
	for h, c := range counts {
		out[h] = HourCount{Hour: strconv.Itoa(h) + ":00", Count: c}
	}
	return out
}

func aggErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrAggregation, op, err)
}

func wrapAgg(op string, err error) error {
	if err == nil {
		return nil
	}
	return aggErr(op, err)
}
