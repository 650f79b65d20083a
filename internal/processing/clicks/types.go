package clicks

import "time"

type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceBot     DeviceType = "bot"
	DeviceOther   DeviceType = "other"
)

// Attributes are derived from the raw User-Agent string. All fields except
// DeviceType are best-effort and may be empty.
type Attributes struct {
	DeviceType     DeviceType
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	DeviceVendor   string
	DeviceModel    string
}

// Location is derived from the client IP. Absent fields mean the lookup
// failed or the database lacks the data.
type Location struct {
	Country  string
	Region   string
	City     string
	Timezone string
	ISP      string
}

// Event is one recorded redirect. Events are append-only and never mutated.
type Event struct {
	LinkID    string
	Timestamp time.Time
	IPAddress string
	UserAgent string
	Referrer  string
	Attributes
	Location
}

// Request carries the raw per-visit inputs the recorder derives an Event from.
type Request struct {
	LinkID    string
	IPAddress string
	UserAgent string
	Referrer  string
}
