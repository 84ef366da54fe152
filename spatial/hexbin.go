// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/uber/h3-go/v4"
)

// WeightedPoint is a point carrying a weight, typically a vote count.
type WeightedPoint struct {
	Point  Point `json:"point"`
	Weight int64 `json:"weight"`
}

// HexBin is the total weight of every point falling in one H3 cell.
type HexBin struct {
	Cell   string `json:"cell"`
	Center Point  `json:"center"`
	Weight int64  `json:"weight"`
	Points int    `json:"points"`
}

// HexBins aggregates weighted points into H3 cells at the given resolution.
// Bins are ordered by descending weight, ties by first appearance.
func HexBins(points []WeightedPoint, resolution int) ([]HexBin, error) {
	if resolution < 0 || resolution > 15 {
		return nil, eris.Errorf("spatial: invalid h3 resolution %d", resolution)
	}

	index := make(map[h3.Cell]int)
	bins := make([]HexBin, 0)

	for _, wp := range points {
		cell, err := h3.LatLngToCell(h3.NewLatLng(wp.Point.Lat, wp.Point.Lng), resolution)
		if err != nil {
			return nil, eris.Wrapf(err, "converting %s to h3 cell at res %d", wp.Point, resolution)
		}

		i, ok := index[cell]
		if !ok {
			center, err := h3.CellToLatLng(cell)
			if err != nil {
				return nil, eris.Wrapf(err, "computing center of cell %s", cell)
			}

			i = len(bins)
			index[cell] = i
			bins = append(bins, HexBin{
				Cell:   cell.String(),
				Center: Point{Lat: center.Lat, Lng: center.Lng},
			})
		}

		bins[i].Weight += wp.Weight
		bins[i].Points++
	}

	sort.SliceStable(bins, func(i, j int) bool {
		return bins[i].Weight > bins[j].Weight
	})

	return bins, nil
}
