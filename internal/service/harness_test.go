package service

import (
	"sync"
	"testing"
	"time"

	"urbanfix/internal/cache"
	"urbanfix/internal/featureflags"
	"urbanfix/internal/geo"
	"urbanfix/internal/geocode"
	"urbanfix/internal/repository"
	"urbanfix/internal/testutil"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	potholeA = geo.Point{Lat: 18.5204, Lng: 73.8567}
	potholeB = geo.Point{Lat: 18.5205, Lng: 73.8568}
	farAway  = geo.Point{Lat: 18.5304, Lng: 73.8667}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	db        *gorm.DB
	store     *repository.Store
	clock     *fakeClock
	lifecycle *LifecycleService
	scoring   *ScoringService
	resolver  *Resolver
	issues    *IssueService
}

type harnessOption func(*ResolverDeps)

func withGeocoder(g geocode.Reverser, flags string) harnessOption {
	return func(d *ResolverDeps) {
		d.Geocoder = g
		d.Flags = featureflags.NewManager(flags)
	}
}

func withRedis(rdb *redis.Client) harnessOption {
	return func(d *ResolverDeps) { d.Redis = rdb }
}

func withLocker(l cache.Locker) harnessOption {
	return func(d *ResolverDeps) { d.Locker = l }
}

func newHarness(t *testing.T, settings Settings, opts ...harnessOption) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	clock := &fakeClock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}

	deps := ResolverDeps{Store: store, Locker: cache.NewLocalLocker(5 * time.Second)}
	for _, opt := range opts {
		opt(&deps)
	}

	lifecycle := NewLifecycleService(store, deps.Redis, nil, settings)
	lifecycle.now = clock.Now
	deps.Lifecycle = lifecycle

	scoring := NewScoringService(store, deps.Redis)
	scoring.now = clock.Now

	resolver := NewResolver(deps, settings)
	resolver.now = clock.Now

	issues := NewIssueService(store, deps.Redis, settings)
	issues.now = clock.Now

	return &harness{
		db:        db,
		store:     store,
		clock:     clock,
		lifecycle: lifecycle,
		scoring:   scoring,
		resolver:  resolver,
		issues:    issues,
	}
}

func report(p geo.Point) ReportInput {
	lat, lng := p.Lat, p.Lng
	return ReportInput{
		Title:       "Pothole on FC Road",
		Description: "Large pothole in the left lane",
		ImageURL:    "https://storage.example.com/issues/pothole.jpg",
		Latitude:    &lat,
		Longitude:   &lng,
	}
}
