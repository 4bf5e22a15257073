package geo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pune = Point{Lat: 18.5204, Lng: 73.8567}

func TestHaversine_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
	}{
		{"same point", pune, pune, 0},
		{"pune to mumbai", pune, Point{Lat: 19.0760, Lng: 72.8777}, 119_900},
		{"one degree of latitude", Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0}, 111_195},
		{"nearby pothole", pune, Point{Lat: 18.5205, Lng: 73.8568}, 15.32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if tt.expected == 0 {
				assert.Zero(t, got)
				return
			}
			assert.InEpsilon(t, tt.expected, got, 0.01)
		})
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	b := Point{Lat: 18.53, Lng: 73.86}
	assert.Equal(t, Haversine(pune, b), Haversine(b, pune))
}

func TestOffset_MatchesHaversine(t *testing.T) {
	for _, meters := range []float64{1, 10, 50, 500, 4000} {
		north := Offset(pune, meters, 0)
		east := Offset(pune, 0, meters)
		assert.InEpsilon(t, meters, Haversine(pune, north), 0.001)
		assert.InEpsilon(t, meters, Haversine(pune, east), 0.001)
	}
}

func TestBounds_ContainsCircle(t *testing.T) {
	box := Bounds(pune, 50)
	for _, p := range []Point{
		Offset(pune, 50, 0),
		Offset(pune, -50, 0),
		Offset(pune, 0, 50),
		Offset(pune, 0, -50),
		Offset(pune, 35, 35),
	} {
		assert.True(t, box.Contains(p), "point %+v should be inside %+v", p, box)
	}
	assert.False(t, box.Contains(Offset(pune, 60, 0)))
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, pune.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -181}.Valid())
}

func TestGrid_NeighbourhoodIsSortedAndComplete(t *testing.T) {
	cells := Grid{SizeMeters: 50}.Neighbourhood(pune)
	require.Len(t, cells, 9)
	for i := 1; i < len(cells); i++ {
		assert.Less(t, cells[i-1].Key(), cells[i].Key())
	}
	assert.Contains(t, cells, Grid{SizeMeters: 50}.CellOf(pune))
}

// Any two points within the grid size must share at least one cell so that
// their lock sets overlap.
func TestGrid_NearbyPointsShareACell(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, size := range []float64{10, 50, 250} {
		g := Grid{SizeMeters: size}
		for _, origin := range []Point{pune, {Lat: 59.33, Lng: 18.06}, {Lat: -33.87, Lng: 151.21}, {Lat: 0, Lng: 0}} {
			for i := 0; i < 500; i++ {
				a := Offset(origin, rng.Float64()*2000-1000, rng.Float64()*2000-1000)
				b := Offset(a, (rng.Float64()*2-1)*size*0.7, (rng.Float64()*2-1)*size*0.7)
				if Haversine(a, b) > size {
					continue
				}
				assert.True(t, overlaps(g.Neighbourhood(a), g.Neighbourhood(b)),
					"size=%v a=%+v b=%+v", size, a, b)
			}
		}
	}
}

func overlaps(a, b []Cell) bool {
	seen := make(map[Cell]struct{}, len(a))
	for _, c := range a {
		seen[c] = struct{}{}
	}
	for _, c := range b {
		if _, ok := seen[c]; ok {
			return true
		}
	}
	return false
}

func TestNormalizeLng(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{73.85, 73.85},
		{180, -180},
		{180.5, -179.5},
		{-180.25, 179.75},
		{540, -180},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeLng(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestBounds_WrapsAtAntimeridian(t *testing.T) {
	east := Point{Lat: -17.8, Lng: 179.9999}
	box := Bounds(east, 50)
	ranges := box.LngRanges()
	require.Len(t, ranges, 2)
	assert.Equal(t, 180.0, ranges[0].Max)
	assert.Equal(t, -180.0, ranges[1].Min)

	west := Offset(east, 0, 30)
	assert.Less(t, west.Lng, 0.0)
	assert.True(t, box.Contains(west), "point across the antimeridian should be inside %+v", box)
	assert.False(t, box.Contains(Point{Lat: -17.8, Lng: 0}))

	assert.Len(t, Bounds(pune, 50).LngRanges(), 1)
}

func TestGrid_NeighbourhoodWrapsAtAntimeridian(t *testing.T) {
	g := Grid{SizeMeters: 50}
	east := Point{Lat: -17.8, Lng: 179.9999}
	west := Point{Lat: -17.8, Lng: -179.9999}
	require.Less(t, Haversine(east, west), 50.0)
	assert.True(t, overlaps(g.Neighbourhood(east), g.Neighbourhood(west)))

	for _, c := range g.Neighbourhood(east) {
		assert.GreaterOrEqual(t, c.Col, int64(0))
		assert.Less(t, c.Col, g.cols(c.Row))
	}
}
