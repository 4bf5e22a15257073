// Command seed creates demo issue clusters from a YAML scenario.
package main

import (
	"context"
	"flag"
	"log"

	"urbanfix/internal/cache"
	"urbanfix/internal/config"
	"urbanfix/internal/database"
	"urbanfix/internal/repository"
	"urbanfix/internal/seed"
	"urbanfix/internal/service"
)

func main() {
	scenarioPath := flag.String("scenario", "seed/scenario.yml", "Path to the YAML scenario")
	flag.Parse()

	sc, err := seed.LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)
	var locker cache.Locker = cache.NewLocalLocker(cfg.GeocellLockWait)
	if rdb != nil {
		locker = cache.NewRedisLocker(rdb, cfg.GeocellLockTTL, cfg.GeocellLockWait)
	}

	store := repository.NewStore(db)
	settings := service.SettingsFromConfig(cfg)
	lifecycle := service.NewLifecycleService(store, rdb, nil, settings)
	resolver := service.NewResolver(service.ResolverDeps{
		Store:     store,
		Redis:     rdb,
		Locker:    locker,
		Lifecycle: lifecycle,
	}, settings)

	seeder := seed.NewSeeder(resolver, service.NewScoringService(store, rdb), lifecycle, settings.RadiusMeters)
	sum, err := seeder.Run(context.Background(), sc)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d issues (%d merged reports, %d votes, %d addressed)", sum.Created, sum.Merged, sum.Votes, sum.Addressed)
}
