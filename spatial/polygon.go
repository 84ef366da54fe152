// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// ErrInvalidPolygon is returned when a geometry can't be used for containment tests.
var ErrInvalidPolygon = eris.New("invalid polygon")

// Polygon is a closed planar region drawn by the user. It may be made of
// several parts (a GeoJSON MultiPolygon) and each part may carry holes.
//
// Containment is planar over (lng, lat). A point lying on an outer ring,
// vertices included, is inside. A point strictly inside a hole is outside;
// a point on a hole boundary is still inside. Self-intersecting rings are
// not detected and give undefined results.
type Polygon struct {
	parts []*geom.Polygon
}

// NewPolygon builds a single-part polygon from rings of points. The first
// ring is the outer boundary, the rest are holes. Rings are closed
// automatically when the last point differs from the first.
func NewPolygon(rings ...[]Point) (*Polygon, error) {
	coords := make([][]geom.Coord, 0, len(rings))

	for _, ring := range rings {
		cs := make([]geom.Coord, 0, len(ring)+1)
		for _, p := range ring {
			cs = append(cs, p.Coord())
		}

		if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
			cs = append(cs, ring[0].Coord())
		}

		coords = append(coords, cs)
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: building polygon")
	}

	return newPolygon([]*geom.Polygon{poly})
}

// ParsePolygon reads a GeoJSON Polygon or MultiPolygon geometry, or a
// Feature wrapping one. Coordinates are [lng, lat] as GeoJSON mandates.
func ParsePolygon(data []byte) (*Polygon, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, eris.Wrapf(ErrInvalidPolygon, "decoding geojson: %v", err)
	}

	var g geom.T

	if head.Type == "Feature" {
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrapf(ErrInvalidPolygon, "decoding feature: %v", err)
		}

		g = f.Geometry
	} else if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrapf(ErrInvalidPolygon, "decoding geometry: %v", err)
	}

	switch t := g.(type) {
	case *geom.Polygon:
		return newPolygon([]*geom.Polygon{t})
	case *geom.MultiPolygon:
		parts := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := range t.NumPolygons() {
			parts = append(parts, t.Polygon(i))
		}

		return newPolygon(parts)
	case nil:
		return nil, eris.Wrap(ErrInvalidPolygon, "missing geometry")
	default:
		return nil, eris.Wrapf(ErrInvalidPolygon, "unsupported geometry %T", g)
	}
}

func newPolygon(parts []*geom.Polygon) (*Polygon, error) {
	if len(parts) == 0 {
		return nil, eris.Wrap(ErrInvalidPolygon, "no polygon parts")
	}

	for i, part := range parts {
		if part.NumLinearRings() == 0 {
			return nil, eris.Wrapf(ErrInvalidPolygon, "part %d has no rings", i)
		}

		for r := range part.NumLinearRings() {
			ring := part.LinearRing(r)
			// three distinct positions plus the closing one
			if ring.NumCoords() < 4 {
				return nil, eris.Wrapf(ErrInvalidPolygon, "part %d ring %d has %d positions", i, r, ring.NumCoords())
			}
		}
	}

	return &Polygon{parts: parts}, nil
}

// Contains reports whether p lies inside the polygon, boundary included.
func (pg *Polygon) Contains(p Point) bool {
	c := p.Coord()

	for _, part := range pg.parts {
		if containsInPart(part, c) {
			return true
		}
	}

	return false
}

func containsInPart(part *geom.Polygon, c geom.Coord) bool {
	if !part.Bounds().OverlapsPoint(part.Layout(), c) {
		return false
	}

	outer := part.LinearRing(0)
	if !xy.IsPointInRing(outer.Layout(), c, outer.FlatCoords()) {
		return false
	}

	for i := 1; i < part.NumLinearRings(); i++ {
		hole := part.LinearRing(i)
		if xy.LocatePointInRing(hole.Layout(), c, hole.FlatCoords()) == location.Interior {
			return false
		}
	}

	return true
}

// String returns a short description of the polygon.
func (pg *Polygon) String() string {
	return fmt.Sprintf("POLYGON(%d parts)", len(pg.parts))
}

// FilterInside returns the values whose point lies inside the polygon,
// preserving input order. Values without a resolved point are skipped. The
// scan is linear in the number of records.
func FilterInside[T any](pg *Polygon, records []Located[T]) []T {
	ret := make([]T, 0, len(records))

	for _, r := range records {
		if r.Point == nil {
			continue
		}

		if pg.Contains(*r.Point) {
			ret = append(ret, r.Value)
		}
	}

	return ret
}
