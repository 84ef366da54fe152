// Copyright 2025 The UrnaMapa Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ErrInvalidPoint is returned for coordinates outside the globe.
var ErrInvalidPoint = eris.New("invalid coordinates")

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Validate checks that the point lies within the global bounds.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return eris.Wrapf(ErrInvalidPoint, "latitude must be between -90 and 90, got %f", p.Lat)
	}

	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return eris.Wrapf(ErrInvalidPoint, "longitude must be between -180 and 180, got %f", p.Lng)
	}

	return nil
}

// Coord returns the point as an XY coordinate, x being the longitude.
func (p Point) Coord() geom.Coord {
	return geom.Coord{p.Lng, p.Lat}
}

// Pair returns the point as the [lat, lng] pair stored in the cache file.
func (p Point) Pair() [2]float64 {
	return [2]float64{p.Lat, p.Lng}
}

// PointFromPair builds a point from a [lat, lng] pair.
func PointFromPair(pair [2]float64) Point {
	return Point{Lat: pair[0], Lng: pair[1]}
}

// Located pairs a value with its coordinate. A nil Point means the
// coordinate could not be resolved.
type Located[T any] struct {
	Point *Point
	Value T
}
