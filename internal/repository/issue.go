package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"urbanfix/internal/geo"
	"urbanfix/internal/models"
	"urbanfix/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var clauseLockingUpdate = clause.Locking{Strength: "UPDATE"}

// ErrIssueNotOpen is returned when a merge targets an issue that left the open states.
var ErrIssueNotOpen = errors.New("issue is no longer open")

// IssueFilter selects issues for feed and dashboard reads.
type IssueFilter struct {
	Statuses  []models.IssueStatus
	Query     string
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

// IssueRepository defines the interface for issue data operations
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Issue, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Issue, error)
	FindNearby(ctx context.Context, p geo.Point, radiusMeters float64, since time.Time) ([]models.NearbyIssue, error)
	RecordMerge(ctx context.Context, id uuid.UUID, now time.Time) error
	AddScore(ctx context.Context, id uuid.UUID, delta int, now time.Time) (int, error)
	PromoteToVerified(ctx context.Context, id uuid.UUID, threshold int, now time.Time) (bool, error)
	SetAIVerified(ctx context.Context, id uuid.UUID, now time.Time) error
	SetAddress(ctx context.Context, id uuid.UUID, address string) error
	MarkAddressed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	List(ctx context.Context, f IssueFilter) ([]models.Issue, error)
	Stats(ctx context.Context) (*models.IssueStats, error)
}

// issueRepository implements IssueRepository
type issueRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &issueRepository{db: db, log: observability.NewRepoLogger("issues")}
}

func (r *issueRepository) Create(ctx context.Context, issue *models.Issue) error {
	defer observability.TrackQuery("create", "issues")()
	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(issue).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"issue_id": issue.ID})
	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	defer observability.TrackQuery("get", "issues")()
	var issue models.Issue
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	defer observability.TrackQuery("get_for_update", "issues")()
	var issue models.Issue
	if err := lockForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&issue).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

type nearbyRow struct {
	ID        uuid.UUID
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
}

// FindNearby returns open issues within radiusMeters of p created at or
// after since, nearest first and oldest first on equal distance. A bounding
// box prefilter runs in SQL; the exact haversine cut and ordering run here.
func (r *issueRepository) FindNearby(ctx context.Context, p geo.Point, radiusMeters float64, since time.Time) ([]models.NearbyIssue, error) {
	defer observability.TrackQuery("find_nearby", "issues")()
	box := geo.Bounds(p, radiusMeters)

	// A box that crosses the antimeridian becomes two longitude ranges.
	ranges := box.LngRanges()
	lng := r.db.Where("longitude BETWEEN ? AND ?", ranges[0].Min, ranges[0].Max)
	for _, span := range ranges[1:] {
		lng = lng.Or("longitude BETWEEN ? AND ?", span.Min, span.Max)
	}

	var rows []nearbyRow
	err := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Select("id", "latitude", "longitude", "created_at").
		Where("status IN ?", models.OpenStatuses).
		Where("created_at >= ?", since).
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where(lng).
		Scan(&rows).Error
	if err != nil {
		r.log.LogError(ctx, err, "find_nearby")
		return nil, err
	}

	out := make([]models.NearbyIssue, 0, len(rows))
	for _, row := range rows {
		d := geo.Haversine(p, geo.Point{Lat: row.Latitude, Lng: row.Longitude})
		if d <= radiusMeters {
			out = append(out, models.NearbyIssue{IssueID: row.ID, DistanceMeters: d, CreatedAt: row.CreatedAt})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].IssueID.String() < out[j].IssueID.String()
	})
	return out, nil
}

// RecordMerge counts one more distinct reporter on an open issue.
func (r *issueRepository) RecordMerge(ctx context.Context, id uuid.UUID, now time.Time) error {
	defer observability.TrackQuery("record_merge", "issues")()
	res := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ? AND status IN ?", id, models.OpenStatuses).
		Updates(map[string]interface{}{
			"users_reported": gorm.Expr("users_reported + 1"),
			"updated_at":     now,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "record_merge")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIssueNotOpen
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"issue_id": id, "change": "users_reported+1"})
	return nil
}

// AddScore applies delta as a single atomic increment and returns the stored score.
func (r *issueRepository) AddScore(ctx context.Context, id uuid.UUID, delta int, now time.Time) (int, error) {
	defer observability.TrackQuery("add_score", "issues")()
	res := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"priority_score": gorm.Expr("priority_score + ?", delta),
			"updated_at":     now,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "add_score")
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var score int
	if err := r.db.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", id).Pluck("priority_score", &score).Error; err != nil {
		return 0, err
	}
	return score, nil
}

// PromoteToVerified moves a pending issue to verified when it is AI verified
// or has at least threshold reporters. It reports whether the row changed.
func (r *issueRepository) PromoteToVerified(ctx context.Context, id uuid.UUID, threshold int, now time.Time) (bool, error) {
	defer observability.TrackQuery("promote", "issues")()
	res := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Where("ai_verified = ? OR users_reported >= ?", true, threshold).
		Updates(map[string]interface{}{
			"status":     models.StatusVerified,
			"updated_at": now,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "promote")
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *issueRepository) SetAIVerified(ctx context.Context, id uuid.UUID, now time.Time) error {
	defer observability.TrackQuery("set_ai_verified", "issues")()
	res := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_verified": true,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetAddress stores the reverse geocoded address without touching updated_at.
func (r *issueRepository) SetAddress(ctx context.Context, id uuid.UUID, address string) error {
	defer observability.TrackQuery("set_address", "issues")()
	return r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ?", id).
		UpdateColumn("address", address).Error
}

// MarkAddressed moves a verified issue to addressed and stamps addressed_at.
// It reports whether the row changed; false means the issue was not verified.
func (r *issueRepository) MarkAddressed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	defer observability.TrackQuery("mark_addressed", "issues")()
	res := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ? AND status = ?", id, models.StatusVerified).
		Updates(map[string]interface{}{
			"status":       models.StatusAddressed,
			"addressed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "mark_addressed")
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns issues ordered for triage: priority descending, then oldest first.
func (r *issueRepository) List(ctx context.Context, f IssueFilter) ([]models.Issue, error) {
	defer observability.TrackQuery("list", "issues")()
	q := r.db.WithContext(ctx).Model(&models.Issue{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(address, '')) LIKE ? ESCAPE '\\'", like, like, like)
	}

	var issues []models.Issue
	err := q.Order("priority_score DESC").Order("created_at ASC").Order("id ASC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&issues).Error
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	return issues, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *issueRepository) Stats(ctx context.Context) (*models.IssueStats, error) {
	defer observability.TrackQuery("stats", "issues")()
	var rows []struct {
		Status models.IssueStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Issue{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &models.IssueStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.StatusPending:
			stats.Pending = row.Count
		case models.StatusVerified:
			stats.Verified = row.Count
		case models.StatusAddressed:
			stats.Addressed = row.Count
		}
	}
	return stats, nil
}
