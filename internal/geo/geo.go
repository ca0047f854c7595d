// Package geo provides coordinate and extent math shared across the planner.
// All functions are pure; WGS-84 decimal degrees throughout.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinate is within valid WGS-84 ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}

// BoundingBox represents a geographic bounding box.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Coordinate {
	return Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// Pad grows the box by the given amounts in degrees per side. Asymmetric
// padding lets the viewport fit leave room for overlays along one edge.
func (b BoundingBox) Pad(top, right, bottom, left float64) BoundingBox {
	return BoundingBox{
		MinLon: b.MinLon - left,
		MinLat: b.MinLat - bottom,
		MaxLon: b.MaxLon + right,
		MaxLat: b.MaxLat + top,
	}
}

// Viewbox formats the box as "minLon,maxLat,maxLon,minLat", the order the
// bounded nearby-search endpoint expects.
func (b BoundingBox) Viewbox() string {
	return fmt.Sprintf("%f,%f,%f,%f", b.MinLon, b.MaxLat, b.MaxLon, b.MinLat)
}

// ExtentOf computes the bounding box of a path. Returns the zero box for an
// empty path.
func ExtentOf(path []Coordinate) BoundingBox {
	if len(path) == 0 {
		return BoundingBox{}
	}

	box := BoundingBox{
		MinLon: path[0].Lon,
		MinLat: path[0].Lat,
		MaxLon: path[0].Lon,
		MaxLat: path[0].Lat,
	}
	for _, p := range path[1:] {
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
	}
	return box
}

// HaversineMeters returns the great-circle distance in meters between two
// points.
func HaversineMeters(a, b Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	rLatA := radians(a.Lat)
	rLatB := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLatA)*math.Cos(rLatB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// MidpointIndex returns the index of the point nearest the middle of a path
// of length n.
func MidpointIndex(n int) int {
	if n <= 0 {
		return 0
	}
	return n / 2
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
