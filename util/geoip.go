package util

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
)

// IPLocation is the resolved place of a client address.
type IPLocation struct {
	City    string
	Country string
}

// String renders "City/Country", or whichever part is known.
func (l IPLocation) String() string {
	switch {
	case l.City != "" && l.Country != "":
		return l.City + "/" + l.Country
	case l.Country != "":
		return l.Country
	default:
		return l.City
	}
}

var (
	geoipMu        sync.RWMutex
	geoipDB        *geoip2.Reader
	geoipCache     = cache.New(24*time.Hour, time.Hour)
	geoipCacheHits int64
	geoipCacheMiss int64
)

// InitGeoIP opens a GeoLite2 City database. An empty path falls back to
// GEOIP_DB_PATH; with neither set, lookups are disabled.
func InitGeoIP(dbPath string) error {
	if dbPath == "" {
		dbPath = os.Getenv("GEOIP_DB_PATH")
	}
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoipMu.Lock()
	defer geoipMu.Unlock()
	if geoipDB != nil {
		_ = geoipDB.Close()
	}
	geoipDB = r
	geoipCache.Flush()
	return nil
}

// CloseGeoIP closes the GeoIP database if opened.
func CloseGeoIP() {
	geoipMu.Lock()
	defer geoipMu.Unlock()
	if geoipDB != nil {
		_ = geoipDB.Close()
		geoipDB = nil
	}
}

// DownloadRequest describes where to fetch a database from and where to put it.
type DownloadRequest struct {
	URL      string
	DestPath string
	Client   *http.Client
}

// DownloadGeoIPWithRequest downloads an MMDB file, unpacking it when the URL
// ends in .gz, and atomically moves it into place.
func DownloadGeoIPWithRequest(ctx context.Context, dl DownloadRequest) (string, error) {
	if dl.URL == "" || dl.DestPath == "" {
		return "", fmt.Errorf("download url and destination are required")
	}
	client := dl.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download, status: %d", resp.StatusCode)
	}

	dir := filepath.Dir(dl.DestPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "geoip-*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	var body io.Reader = resp.Body
	if strings.HasSuffix(dl.URL, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = tmp.Close()
			return "", err
		}
		defer gz.Close()
		body = gz
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, dl.DestPath); err != nil {
		return "", err
	}
	return dl.DestPath, nil
}

// ValidateGeoIP opens the MMDB file at path to check it is readable.
func ValidateGeoIP(path string) error {
	r, err := geoip2.Open(path)
	if err != nil {
		return err
	}
	return r.Close()
}

func skipLookup(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

// GetIPLocation resolves ip through the cache, then the local database.
// Private, loopback and unparsable addresses resolve to a zero IPLocation.
func GetIPLocation(ip string) IPLocation {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || skipLookup(parsed) {
		return IPLocation{}
	}
	key := parsed.String()
	if v, ok := geoipCache.Get(key); ok {
		atomic.AddInt64(&geoipCacheHits, 1)
		return v.(IPLocation)
	}
	atomic.AddInt64(&geoipCacheMiss, 1)

	geoipMu.RLock()
	reader := geoipDB
	geoipMu.RUnlock()
	if reader == nil {
		return IPLocation{}
	}
	rec, err := reader.City(parsed)
	if err != nil {
		return IPLocation{}
	}
	loc := IPLocation{City: rec.City.Names["en"], Country: rec.Country.Names["en"]}
	if loc.Country == "" {
		loc.Country = rec.Country.IsoCode
	}
	geoipCache.Set(key, loc, cache.DefaultExpiration)
	return loc
}

// GetGeoIPCacheMetrics returns cache hits, misses and current size.
func GetGeoIPCacheMetrics() (hits int64, misses int64, size int) {
	return atomic.LoadInt64(&geoipCacheHits), atomic.LoadInt64(&geoipCacheMiss), geoipCache.ItemCount()
}
