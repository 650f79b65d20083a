package stats

import "time"

// DeviceCount is one deviceType bucket.
type DeviceCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// NameCount is a single-key bucket (country, ISP).
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// VersionedCount is a (name, version) bucket (browser, OS).
type VersionedCount struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Count   int64  `json:"count"`
}

type ReferrerCount struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

// DailyCount is one calendar day (YYYY-MM-DD) bucket.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// HourCount is one hour-of-day slot, labelled "0:00".."23:00".
type HourCount struct {
	Hour  string `json:"hour"`
	Count int64  `json:"count"`
}

// HourBucket is the raw store-level hour group, before the fixed
// 24-slot expansion.
type HourBucket struct {
	Hour  int
	Count int64
}

type PopularLink struct {
	LinkID      string `json:"linkId"`
	OriginalURL string `json:"originalURL"`
	Alias       string `json:"alias,omitempty"`
	Clicks      int64  `json:"clicks"`
}

type LinkSummary struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"originalURL"`
	Alias       string     `json:"alias,omitempty"`
	ShortURL    string     `json:"shortUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type Totals struct {
	Links  int64 `json:"links"`
	Clicks int64 `json:"clicks"`
}

// DashboardSummary is the all-links analytics view.
type DashboardSummary struct {
	Totals       Totals        `json:"totals"`
	RecentLinks  []LinkSummary `json:"recentLinks"`
	PopularLinks []PopularLink `json:"popularLinks"`
	Devices      []DeviceCount `json:"devices"`
	Countries    []NameCount   `json:"countries"`
	DailyClicks  []DailyCount  `json:"dailyClicks"`
}

type ClickTotals struct {
	Total          int64 `json:"total"`
	Unique         int64 `json:"unique"`
	ConversionRate int   `json:"conversionRate"`
}

// LinkStats is the single-link analytics view.
type LinkStats struct {
	Link             LinkSummary      `json:"link"`
	Clicks           ClickTotals      `json:"clicks"`
	Devices          []DeviceCount    `json:"devices"`
	Browsers         []VersionedCount `json:"browsers"`
	Countries        []NameCount      `json:"countries"`
	Referrers        []ReferrerCount  `json:"referrers"`
	Timeline         []DailyCount     `json:"timeline"`
	HourlyTraffic    []HourCount      `json:"hourlyTraffic"`
	OperatingSystems []VersionedCount `json:"operatingSystems"`
	Networks         []NameCount      `json:"networks"`
}
