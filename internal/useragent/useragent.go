// Package useragent classifies raw User-Agent strings into the structured
// attributes the click recorder stores.
package useragent

import (
	"regexp"
	"strings"

	ua "github.com/mileusna/useragent"

	"github.com/linklytics/linklytics/internal/processing/clicks"
)

var botPattern = regexp.MustCompile(`(?i)bot|crawl|spider`)

type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// Extract never fails; an empty or unrecognizable User-Agent yields the
// "other" device type with all derived fields empty.
func (e *Extractor) Extract(raw string) clicks.Attributes {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return clicks.Attributes{DeviceType: clicks.DeviceOther}
	}

	parsed := ua.Parse(raw)

	return clicks.Attributes{
		DeviceType:     deviceType(parsed, raw),
		Browser:        parsed.Name,
		BrowserVersion: parsed.Version,
		OS:             parsed.OS,
		OSVersion:      parsed.OSVersion,
		DeviceModel:    parsed.Device,
	}
}

// deviceType precedence: mobile > tablet > bot-pattern > desktop.
func deviceType(parsed ua.UserAgent, raw string) clicks.DeviceType {
	switch {
	case parsed.Mobile:
		return clicks.DeviceMobile
	case parsed.Tablet:
		return clicks.DeviceTablet
	case parsed.Bot || botPattern.MatchString(raw):
		return clicks.DeviceBot
	case parsed.Desktop:
		return clicks.DeviceDesktop
	default:
		return clicks.DeviceOther
	}
}
