// internal/requestinfo/requestinfo.go
//
// Per-request metadata: user-agent fingerprint, client IP, and optional
// geolocation.  These structs are inert — no database handles, no large
// buffers — so they are safe to log or JSON-encode.
//
// Dependencies
// • github.com/avct/uasurfer          (UA parsing)
// • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
package requestinfo

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// UA carries the parsed user-agent attributes the access log records.
type UA struct {
	Raw     string // Entire User-Agent header
	Browser string // "Chrome", "Firefox", "Safari", …
	Version string // "124.0.6367"
	OS      string // "MacOSX", "Windows", "Android", …
	Device  string // "Desktop", "Mobile", "Tablet", or "Other"
	IsBot   bool   // True if UA matches a crawler signature
}

// Geo holds IP-based geolocation hints.  Best-effort: empty when no
// GeoLite2 database is configured or the IP has no match.
type Geo struct {
	IP         net.IP // Original client address (not the X-Forwarded-For chain)
	CountryISO string // "US", "CA", "FR", …
	City       string // "Chicago", "Paris", …
}

// Info is stored in the request context by Enrich.
type Info struct {
	UA        UA
	Geo       Geo
	URL       *url.URL // Pointer copy, safe to dereference read-only
	Timestamp time.Time
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// geoReader is a singleton MaxMind handle.  Safe for concurrent reads,
// which is all we ever perform.  nil disables geolocation.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database.  Call from main() when a
// database path is configured; skipping it leaves Geo fields empty.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

//
//  -----------------------------
//  Context plumbing
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich, or nil if
// the middleware has not run.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(raw string) UA {
	u := surfer.Parse(raw)

	info := UA{
		Raw:     raw,
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version: versionString(u.Browser.Version),
		OS:      strings.TrimPrefix(u.OS.Name.String(), "OS"),
		IsBot:   u.IsBot(),
	}

	switch u.DeviceType {
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

func versionString(v surfer.Version) string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
}

// lookupGeo is nil-safe on both the reader and the IP.
func lookupGeo(ip net.IP) Geo {
	g := Geo{IP: ip}
	if geoReader == nil || ip == nil {
		return g
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return g
	}
	g.CountryISO = rec.Country.IsoCode
	g.City = rec.City.Names["en"]
	return g
}
