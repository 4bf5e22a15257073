// Package geocode wraps the outbound location services: reverse geocoding
// for issue addresses and IP based map centering.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"urbanfix/internal/cache"
	"urbanfix/internal/geo"
	"urbanfix/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	userAgent       = "urbanfix/1.0 (+https://urbanfix.app)"
	maxResponseSize = 64 << 10
)

// ErrDisabled is returned when no geocoder endpoint is configured.
var ErrDisabled = errors.New("reverse geocoder disabled")

// ErrNoAddress is returned when the provider has no address for the point.
var ErrNoAddress = errors.New("no address for location")

// Reverser resolves a point to a human readable address.
type Reverser interface {
	Reverse(ctx context.Context, p geo.Point) (string, error)
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Nominatim is a Reverser for Nominatim compatible /reverse endpoints.
// Results are cached in Redis by rounded coordinates.
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
	rdb        *redis.Client
}

// NewNominatim creates a reverse geocoder. An empty baseURL disables lookups.
func NewNominatim(baseURL string, timeout time.Duration, rdb *redis.Client) *Nominatim {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Nominatim{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		rdb:        rdb,
	}
}

// Reverse returns the display address for p.
func (n *Nominatim) Reverse(ctx context.Context, p geo.Point) (string, error) {
	if n == nil || n.baseURL == "" {
		observability.GeocodeRequests.WithLabelValues("disabled").Inc()
		return "", ErrDisabled
	}

	span, ctx := observability.NewClientSpan(ctx, "geocode.reverse",
		attribute.Float64("geo.lat", p.Lat), attribute.Float64("geo.lng", p.Lng))
	defer span.End()

	var address string
	fetched := false
	err := cache.Aside(ctx, n.rdb, cache.GeocodeKey(p.Lat, p.Lng), &address, cache.GeocodeTTL, func() error {
		fetched = true
		var ferr error
		address, ferr = n.fetch(ctx, p)
		return ferr
	})
	if err != nil {
		observability.GeocodeRequests.WithLabelValues("error").Inc()
		span.SetError(err)
		return "", err
	}
	if fetched {
		observability.GeocodeRequests.WithLabelValues("miss").Inc()
	} else {
		observability.GeocodeRequests.WithLabelValues("hit").Inc()
	}
	return address, nil
}

func (n *Nominatim) fetch(ctx context.Context, p geo.Point) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lng, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode: unexpected status code %d", resp.StatusCode)
	}

	var data nominatimResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&data); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if data.Error != "" || strings.TrimSpace(data.DisplayName) == "" {
		return "", ErrNoAddress
	}
	return strings.TrimSpace(data.DisplayName), nil
}
