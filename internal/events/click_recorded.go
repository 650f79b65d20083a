package events

// ClickRecorded is emitted when a redirect click is accepted by the API.
// It carries the raw request attributes; derivation (device, browser, geo)
// happens at consumption time.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	LinkID     string `json:"linkId"`
	IPAddress  string `json:"ipAddress"`
	UserAgent  string `json:"userAgent,omitempty"`
	Referrer   string `json:"referrer,omitempty"`
	OccurredAt string `json:"occurredAt"`
}
