package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"urbanfix/internal/geo"
	"urbanfix/internal/models"
	"urbanfix/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Summary counts what a run produced.
type Summary struct {
	Created   int
	Merged    int
	Votes     int
	Addressed int
}

// Seeder drives the domain services with generated principals.
type Seeder struct {
	resolver  *service.Resolver
	scoring   *service.ScoringService
	lifecycle *service.LifecycleService
	maxSpread float64
}

// NewSeeder creates a Seeder. Cluster spreads are clamped to maxSpread so every
// report of a cluster lands within the duplicate radius of its center.
func NewSeeder(resolver *service.Resolver, scoring *service.ScoringService, lifecycle *service.LifecycleService, maxSpread float64) *Seeder {
	return &Seeder{resolver: resolver, scoring: scoring, lifecycle: lifecycle, maxSpread: maxSpread}
}

// Run creates every cluster in sc.
func (s *Seeder) Run(ctx context.Context, sc *Scenario) (Summary, error) {
	faker := gofakeit.New(sc.Seed)
	var sum Summary

	for _, c := range sc.Clusters {
		issueID, err := s.reportCluster(ctx, faker, c, &sum)
		if err != nil {
			return sum, fmt.Errorf("cluster %q: %w", c.Name, err)
		}
		if err := s.voteCluster(ctx, issueID, c, &sum); err != nil {
			return sum, fmt.Errorf("cluster %q: %w", c.Name, err)
		}
		if c.Addressed {
			ngo := newPrincipal(faker, models.RoleNGO)
			if _, err := s.lifecycle.MarkAddressed(ctx, ngo, issueID); err != nil {
				if !models.HasCode(err, models.CodeInvalidTransition) {
					return sum, fmt.Errorf("cluster %q: %w", c.Name, err)
				}
				slog.WarnContext(ctx, "cluster not verified, left open", "cluster", c.Name, "issue_id", issueID)
			} else {
				sum.Addressed++
			}
		}
		slog.InfoContext(ctx, "seeded cluster", "cluster", c.Name, "issue_id", issueID, "reports", c.Reports)
	}

	return sum, nil
}

func (s *Seeder) reportCluster(ctx context.Context, faker *gofakeit.Faker, c Cluster, sum *Summary) (uuid.UUID, error) {
	center := geo.Point{Lat: c.Lat, Lng: c.Lng}
	spread := math.Min(c.SpreadMeters, s.maxSpread)
	var issueID uuid.UUID

	for i := 0; i < c.Reports; i++ {
		p := center
		if i > 0 && spread > 0 {
			// Scatter inside a square inscribed in the spread circle.
			half := spread / math.Sqrt2
			p = geo.Offset(center, faker.Float64Range(-half, half), faker.Float64Range(-half, half))
		}

		res, err := s.resolver.Submit(ctx, newPrincipal(faker, models.RoleUser), reportInput(faker, c.Name, p))
		if err != nil {
			return uuid.Nil, err
		}
		switch res.Outcome {
		case service.OutcomeCreated:
			sum.Created++
		case service.OutcomeMerged:
			sum.Merged++
		}
		if i == 0 {
			issueID = res.Issue.ID
		}
	}
	return issueID, nil
}

func (s *Seeder) voteCluster(ctx context.Context, issueID uuid.UUID, c Cluster, sum *Summary) error {
	cast := func(n int, vt models.VoteType) error {
		for i := 0; i < n; i++ {
			voter := models.Principal{UserID: uuid.New(), Role: models.RoleUser}
			if _, err := s.scoring.CastVote(ctx, voter, issueID, vt); err != nil {
				return err
			}
			sum.Votes++
		}
		return nil
	}
	if err := cast(c.Upvotes, models.Upvote); err != nil {
		return err
	}
	return cast(c.Downvotes, models.Downvote)
}

func newPrincipal(faker *gofakeit.Faker, role models.Role) models.Principal {
	return models.Principal{UserID: uuid.New(), Role: role, Email: faker.Email()}
}

func reportInput(faker *gofakeit.Faker, name string, p geo.Point) service.ReportInput {
	title := fmt.Sprintf("%s on %s", name, faker.StreetName())
	if len(title) > 100 {
		title = title[:100]
	}
	lat, lng := p.Lat, p.Lng
	return service.ReportInput{
		Title:       title,
		Description: faker.Sentence(12),
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/600", faker.UUID()),
		Latitude:    &lat,
		Longitude:   &lng,
	}
}
