package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"urbanfix/internal/geo"
)

// Location sources reported to clients.
const (
	SourceIP      = "ip"
	SourceDefault = "default"
)

// Location is the map center suggested for a client.
type Location struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Source string  `json:"source"`
}

type ipwhoResponse struct {
	Success   bool     `json:"success"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// IPLocator resolves client IPs to coordinates through an ipwho.is
// compatible API and falls back to a fixed center.
type IPLocator struct {
	baseURL    string
	fallback   geo.Point
	httpClient *http.Client
}

// NewIPLocator creates a locator. An empty baseURL always yields the fallback.
func NewIPLocator(baseURL string, fallback geo.Point, timeout time.Duration) *IPLocator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &IPLocator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		fallback:   fallback,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Locate never fails: unroutable addresses, lookup errors and unusable
// answers all produce the default center.
func (l *IPLocator) Locate(ctx context.Context, ip string) Location {
	def := Location{Lat: l.fallback.Lat, Lng: l.fallback.Lng, Source: SourceDefault}
	if l.baseURL == "" || !IsPublicIP(ip) {
		return def
	}

	p, err := l.lookup(ctx, ip)
	if err != nil {
		slog.WarnContext(ctx, "ip location lookup failed", "error", err)
		return def
	}
	return Location{Lat: p.Lat, Lng: p.Lng, Source: SourceIP}
}

func (l *IPLocator) lookup(ctx context.Context, ip string) (geo.Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return geo.Point{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data ipwhoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&data); err != nil {
		return geo.Point{}, fmt.Errorf("decode response: %w", err)
	}
	if !data.Success || data.Latitude == nil || data.Longitude == nil {
		return geo.Point{}, fmt.Errorf("no coordinates for %s", ip)
	}
	p := geo.Point{Lat: *data.Latitude, Lng: *data.Longitude}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("invalid coordinates for %s", ip)
	}
	return p, nil
}

// IsPublicIP reports whether ip parses and is globally routable.
func IsPublicIP(ip string) bool {
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return false
	}
	return !(addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast())
}

// ClientIP picks the originating address from proxy headers, then the socket.
func ClientIP(forwardedFor, realIP, remote string) string {
	if forwardedFor != "" {
		if first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(realIP); ip != "" {
		return ip
	}
	return remote
}
