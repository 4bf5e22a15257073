package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"urbanfix/internal/geo"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pune = geo.Point{Lat: 18.5204, Lng: 73.8567}

func TestNominatim_ReverseCachesResult(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "18.520400", r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"display_name":"Shivajinagar, Pune, Maharashtra, India"}`))
	}))
	defer srv.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	g := NewNominatim(srv.URL+"/", time.Second, rdb)

	addr, err := g.Reverse(context.Background(), pune)
	require.NoError(t, err)
	assert.Equal(t, "Shivajinagar, Pune, Maharashtra, India", addr)

	// A point within the rounding cell is answered from Redis.
	addr, err = g.Reverse(context.Background(), geo.Point{Lat: 18.52041, Lng: 73.85671})
	require.NoError(t, err)
	assert.Equal(t, "Shivajinagar, Pune, Maharashtra, India", addr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNominatim_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }, nil},
		{"no address", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"error":"Unable to geocode"}`)) }, ErrNoAddress},
		{"garbage", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`<html>`)) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewNominatim(srv.URL, time.Second, nil).Reverse(context.Background(), pune)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNominatim_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"display_name":"late"}`))
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL, 20*time.Millisecond, nil).Reverse(context.Background(), pune)
	assert.Error(t, err)
}

func TestNominatim_Disabled(t *testing.T) {
	_, err := NewNominatim("", 0, nil).Reverse(context.Background(), pune)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestIPLocator_Locate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/8.8.8.8":
			_, _ = w.Write([]byte(`{"success":true,"latitude":37.386,"longitude":-122.0838}`))
		case "/1.1.1.1":
			_, _ = w.Write([]byte(`{"success":false,"message":"reserved range"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	l := NewIPLocator(srv.URL, pune, time.Second)
	ctx := context.Background()

	got := l.Locate(ctx, "8.8.8.8")
	assert.Equal(t, Location{Lat: 37.386, Lng: -122.0838, Source: SourceIP}, got)

	def := Location{Lat: pune.Lat, Lng: pune.Lng, Source: SourceDefault}
	assert.Equal(t, def, l.Locate(ctx, "1.1.1.1"))
	assert.Equal(t, def, l.Locate(ctx, "9.9.9.9"))
	assert.Equal(t, def, l.Locate(ctx, "192.168.1.20"))
	assert.Equal(t, def, l.Locate(ctx, ""))
	assert.Equal(t, def, NewIPLocator("", pune, 0).Locate(ctx, "8.8.8.8"))
}

func TestIsPublicIP(t *testing.T) {
	tests := map[string]bool{
		"8.8.8.8":       true,
		"2001:4860::1":  true,
		"10.0.0.1":      false,
		"172.20.1.1":    false,
		"192.168.0.1":   false,
		"127.0.0.1":     false,
		"::1":           false,
		"fd00::1":       false,
		"169.254.1.1":   false,
		"not-an-ip":     false,
		"0.0.0.0":       false,
		" 93.184.216.34": true,
	}
	for ip, want := range tests {
		assert.Equal(t, want, IsPublicIP(ip), ip)
	}
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "203.0.113.9", ClientIP("203.0.113.9, 10.0.0.1", "198.51.100.1", "127.0.0.1"))
	assert.Equal(t, "198.51.100.1", ClientIP("", " 198.51.100.1 ", "127.0.0.1"))
	assert.Equal(t, "127.0.0.1", ClientIP(" , ", "", "127.0.0.1"))
}
