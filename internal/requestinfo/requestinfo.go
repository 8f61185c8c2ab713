//
//  internal/requestinfo/requestinfo.go
//
//  Per-request metadata for provisioning fetches: request id, client IP,
//  user-agent fingerprint, optional geolocation, and arrival time.  The
//  structs are inert, so they are safe to log or JSON-encode.
//
//  Dependencies
//  • github.com/google/uuid            (request ids)
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"net"
	"strconv"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA holds the parsed user-agent properties.  cloud-init and curl show up
// with an empty Browser and Device "Other".
type UA struct {
	Raw     string
	Browser string
	Version string
	OS      string
	Device  string // "Desktop", "Mobile", "Tablet", or "Other"
	IsBot   bool
}

// Geo holds IP-based geolocation hints.  Empty unless a GeoLite2 database
// is configured.
type Geo struct {
	CountryISO string
	City       string
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	ID        string
	IP        net.IP
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

//
//  -----------------------------
//  Geo lookup
//  -----------------------------
//

// GeoLookup resolves an IP to Geo.  Nil-safe: a nil *GeoLookup returns
// empty Geo values.
type GeoLookup struct {
	reader *geoip2.Reader
}

// OpenGeo opens a GeoLite2-City database.  An empty path disables lookups
// and returns (nil, nil).
func OpenGeo(path string) (*GeoLookup, error) {
	if path == "" {
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoLookup{reader: r}, nil
}

// Lookup returns best-effort Geo data for ip.
func (g *GeoLookup) Lookup(ip net.IP) Geo {
	if g == nil || ip == nil {
		return Geo{}
	}
	rec, err := g.reader.City(ip)
	if err != nil {
		return Geo{}
	}
	return Geo{
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}

// Close releases the database.
func (g *GeoLookup) Close() error {
	if g == nil {
		return nil
	}
	return g.reader.Close()
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the value stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// WithInfo returns a copy of ctx carrying info.
func WithInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into UA using uasurfer.
func parseUA(raw string) UA {
	ua := surfer.Parse(raw)

	info := UA{
		Raw:   raw,
		IsBot: ua.IsBot(),
	}
	if ua.Browser.Name != surfer.BrowserUnknown {
		info.Browser = ua.Browser.Name.StringTrimPrefix()
		info.Version = versionToString(ua.Browser.Version)
	}
	if ua.OS.Name != surfer.OSUnknown {
		info.OS = ua.OS.Name.StringTrimPrefix()
	}

	switch ua.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// versionToString renders a semantic version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	out := strconv.Itoa(v.Major)
	if v.Minor != 0 || v.Patch != 0 {
		out += "." + strconv.Itoa(v.Minor)
	}
	if v.Patch != 0 {
		out += "." + strconv.Itoa(v.Patch)
	}
	return out
}
