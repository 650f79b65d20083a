package stats

import (
	"context"
	"errors"
	"time"

	"github.com/linklytics/linklytics/internal/processing/links"
)

// ErrAggregation marks a store-side query failure. Retryable.
var ErrAggregation = errors.New("aggregation query failed")

// ClickAggregator is the query surface the engine needs from the event
// store. An empty linkID scopes a query to all links.
type ClickAggregator interface {
	CountAll(ctx context.Context) (int64, error)
	CountByLink(ctx context.Context, linkID string) (int64, error)
	CountUniqueIPs(ctx context.Context, linkID string) (int64, error)

	DeviceCounts(ctx context.Context, linkID string) ([]DeviceCount, error)
	CountryCounts(ctx context.Context, linkID string, limit int64, excludeMissing bool) ([]NameCount, error)
	BrowserCounts(ctx context.Context, linkID string, limit int64) ([]VersionedCount, error)
	OSCounts(ctx context.Context, linkID string, limit int64) ([]VersionedCount, error)
	ReferrerCounts(ctx context.Context, linkID string, limit int64) ([]ReferrerCount, error)
	ISPCounts(ctx context.Context, linkID string, limit int64) ([]NameCount, error)

	DailyCounts(ctx context.Context, linkID string, since time.Time) ([]DailyCount, error)
	HourlyCounts(ctx context.Context, linkID string) ([]HourBucket, error)

	PopularLinks(ctx context.Context, limit int64) ([]PopularLink, error)
}

// LinkCatalog is the slice of the link store the engine reads.
type LinkCatalog interface {
	FindByID(ctx context.Context, id string) (*links.Link, error)
	CountAll(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int64) ([]links.Link, error)
}
