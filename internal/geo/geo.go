// Package geo resolves client IPs to coarse location attributes using
// in-process MaxMind databases, mirroring the lookup the analytics views
// group by. Lookups are best-effort: every failure degrades to absent
// fields, never an error on the redirect path.
package geo

import (
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/linklytics/linklytics/internal/processing/clicks"
)

// NoopResolver resolves nothing. Used when no database is configured.
type NoopResolver struct{}

func (NoopResolver) Resolve(string) (clicks.Location, bool) {
	return clicks.Location{}, false
}

// MaxMindResolver reads a City database and, optionally, an ISP database.
type MaxMindResolver struct {
	city *geoip2.Reader
	isp  *geoip2.Reader
}

// OpenMaxMind opens the City database at cityPath. ispPath may be empty, in
// which case the ISP attribute is never populated.
func OpenMaxMind(cityPath, ispPath string) (*MaxMindResolver, error) {
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, err
	}

	r := &MaxMindResolver{city: city}
	if ispPath != "" {
		isp, err := geoip2.Open(ispPath)
		if err != nil {
			city.Close()
			return nil, err
		}
		r.isp = isp
	}

	return r, nil
}

func (r *MaxMindResolver) Resolve(rawIP string) (clicks.Location, bool) {
	ip := net.ParseIP(rawIP)
	if ip == nil {
		return clicks.Location{}, false
	}

	record, err := r.city.City(ip)
	if err != nil {
		return clicks.Location{}, false
	}

	loc := clicks.Location{
		Country:  record.Country.IsoCode,
		City:     record.City.Names["en"],
		Timezone: record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
	}

	if r.isp != nil {
		if ispRecord, err := r.isp.ISP(ip); err == nil {
			loc.ISP = ispRecord.ISP
		}
	}

	if loc == (clicks.Location{}) {
		return loc, false
	}
	return loc, true
}

func (r *MaxMindResolver) Close() error {
	if r.isp != nil {
		_ = r.isp.Close()
	}
	return r.city.Close()
}
