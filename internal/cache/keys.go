package cache

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	IssueKeyPrefix   = "issue:%s"
	GeocodeKeyPrefix = "geocode:%.4f:%.4f"
	GeocellKeyPrefix = "lock:geocell:%s"
)

const (
	IssueTTL   = 5 * time.Minute
	GeocodeTTL = 24 * time.Hour
)

func IssueKey(id uuid.UUID) string {
	return fmt.Sprintf(IssueKeyPrefix, id)
}

// GeocodeKey rounds to four decimals (about 11 m) so nearby pins share an entry.
func GeocodeKey(lat, lng float64) string {
	return fmt.Sprintf(GeocodeKeyPrefix, math.Round(lat*1e4)/1e4, math.Round(lng*1e4)/1e4)
}

func GeocellKey(cell string) string {
	return fmt.Sprintf(GeocellKeyPrefix, cell)
}
