// Package geo holds the great-circle math behind proximity matching and the
// geocell bucketing used to serialize duplicate resolution.
package geo

import (
	"fmt"
	"math"
	"sort"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6371000.0

// metersPerDegreeLat is the length of one degree of latitude on the sphere above.
const metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p lies within the coordinate ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(s)))
}

// Offset moves p by the given meters north and east.
func Offset(p Point, northMeters, eastMeters float64) Point {
	lat := p.Lat + northMeters/metersPerDegreeLat
	lng := p.Lng + eastMeters/(metersPerDegreeLat*math.Cos(toRad(p.Lat)))
	return Point{Lat: lat, Lng: NormalizeLng(lng)}
}

// NormalizeLng wraps a longitude into [-180, 180).
func NormalizeLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// BoundingBox is a lat/lng rectangle. MinLng may fall below -180 or MaxLng
// above 180 when the box crosses the antimeridian; LngRanges splits it.
type BoundingBox struct {
	MinLat, MaxLat, MinLng, MaxLng float64
}

// LngRange is a closed longitude interval inside [-180, 180].
type LngRange struct {
	Min, Max float64
}

// LngRanges returns the box's longitude span as one range, or two when it
// wraps past ±180.
func (b BoundingBox) LngRanges() []LngRange {
	switch {
	case b.MaxLng-b.MinLng >= 360:
		return []LngRange{{Min: -180, Max: 180}}
	case b.MinLng < -180:
		return []LngRange{{Min: b.MinLng + 360, Max: 180}, {Min: -180, Max: b.MaxLng}}
	case b.MaxLng > 180:
		return []LngRange{{Min: b.MinLng, Max: 180}, {Min: -180, Max: b.MaxLng - 360}}
	}
	return []LngRange{{Min: b.MinLng, Max: b.MaxLng}}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.LngRanges() {
		if p.Lng >= r.Min && p.Lng <= r.Max {
			return true
		}
	}
	return false
}

// Bounds returns a box that contains every point within radiusMeters of center.
// It is a prefilter; callers still compare Haversine distances.
func Bounds(center Point, radiusMeters float64) BoundingBox {
	// Pad by 0.1% so floating error never drops a boundary point.
	r := radiusMeters * 1.001
	dLat := r / metersPerDegreeLat
	maxAbsLat := math.Min(89.9, math.Abs(center.Lat)+dLat)
	dLng := r / (metersPerDegreeLat * math.Cos(toRad(maxAbsLat)))
	return BoundingBox{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
}

// Cell identifies one geocell on a grid sized for a given radius.
type Cell struct {
	Row int64
	Col int64
}

// Key renders the cell as a stable lock key suffix.
func (c Cell) Key() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

// Grid buckets the sphere into cells at least SizeMeters tall and wide.
// Row height is constant in latitude; the column width of a row is taken at
// the poleward edge of the next row out and widened so the row divides 360°
// evenly, so any two points within SizeMeters of each other land in cells
// that are 8-neighbours, including across the antimeridian.
type Grid struct {
	SizeMeters float64
}

func (g Grid) rowHeightDeg() float64 {
	return g.SizeMeters / metersPerDegreeLat
}

func (g Grid) row(lat float64) int64 {
	return int64(math.Floor(lat / g.rowHeightDeg()))
}

// cols returns how many columns the row holds around the globe.
func (g Grid) cols(row int64) int64 {
	h := g.rowHeightDeg()
	lo := float64(row) * h
	hi := lo + h
	poleward := math.Max(math.Abs(lo), math.Abs(hi)) + h
	poleward = math.Min(poleward, 89.0)
	minWidth := g.SizeMeters / (metersPerDegreeLat * math.Cos(toRad(poleward)))
	return int64(math.Max(1, math.Floor(360/minWidth)))
}

func (g Grid) col(row int64, lng float64) int64 {
	n := g.cols(row)
	c := int64(math.Floor((NormalizeLng(lng) + 180) / (360 / float64(n))))
	return wrapCol(c, n)
}

func wrapCol(c, n int64) int64 {
	c %= n
	if c < 0 {
		c += n
	}
	return c
}

// CellOf returns the cell containing p.
func (g Grid) CellOf(p Point) Cell {
	r := g.row(p.Lat)
	return Cell{Row: r, Col: g.col(r, p.Lng)}
}

// Neighbourhood returns the 3x3 block of cells around p, sorted by key so
// that lock acquisition order is globally consistent. Columns wrap at the
// antimeridian; rows with fewer than three columns yield fewer cells.
func (g Grid) Neighbourhood(p Point) []Cell {
	center := g.row(p.Lat)
	cells := make([]Cell, 0, 9)
	seen := make(map[Cell]bool, 9)
	for r := center - 1; r <= center+1; r++ {
		n := g.cols(r)
		c := g.col(r, p.Lng)
		for dc := int64(-1); dc <= 1; dc++ {
			cell := Cell{Row: r, Col: wrapCol(c+dc, n)}
			if !seen[cell] {
				seen[cell] = true
				cells = append(cells, cell)
			}
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Key() < cells[j].Key()
	})
	return cells
}
