// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"

	"github.com/urnamapa/urnamapa/aggregate"
	"github.com/urnamapa/urnamapa/pipeline"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/votes"
)

// Pin is a polling place on the map.
type Pin struct {
	Address string        `json:"address"`
	Place   string        `json:"place"`
	Point   spatial.Point `json:"point"`
	Votes   int64         `json:"votes"`
}

// MapLayers holds the pin, heat and hexbin layers of a set of records.
// The combined map is the pin and heat layers drawn together.
type MapLayers struct {
	Center     spatial.Point           `json:"center"`
	Pins       []Pin                   `json:"pins"`
	Heat       []spatial.WeightedPoint `json:"heat"`
	HexBins    []spatial.HexBin        `json:"hexbins"`
	Unresolved int                     `json:"unresolved"`
}

// Maps geocodes every distinct polling place of records and builds the map
// layers. Places that could not be geocoded are counted in Unresolved.
func (s *Service) Maps(ctx context.Context, records []votes.Record) (*MapLayers, pipeline.Stats, error) {
	places, err := aggregate.GroupAndSum(records, aggregate.Address, aggregate.Place)
	if err != nil {
		return nil, pipeline.Stats{}, err
	}

	items := make([]pipeline.Item[aggregate.Row], len(places))
	for i, row := range places {
		items[i] = pipeline.Item[aggregate.Row]{Address: s.GeocodeAddress(row.Key[0]), Value: row}
	}

	results, stats := pipeline.ResolveBatch(ctx, s.Pipeline, items)

	layers := &MapLayers{
		Center:  DefaultCenter,
		Pins:    make([]Pin, 0, len(results)),
		Heat:    make([]spatial.WeightedPoint, 0, len(results)),
		HexBins: []spatial.HexBin{},
	}

	heatIndex := make(map[spatial.Point]int)

	var sumLat, sumLng float64

	for _, r := range results {
		if r.Point == nil {
			layers.Unresolved++

			continue
		}

		p := *r.Point
		layers.Pins = append(layers.Pins, Pin{
			Address: r.Value.Key[0],
			Place:   r.Value.Key[1],
			Point:   p,
			Votes:   r.Value.Votes,
		})

		sumLat += p.Lat
		sumLng += p.Lng

		// places sharing an address share a coordinate and a heat point
		i, ok := heatIndex[p]
		if !ok {
			i = len(layers.Heat)
			heatIndex[p] = i
			layers.Heat = append(layers.Heat, spatial.WeightedPoint{Point: p})
		}

		layers.Heat[i].Weight += r.Value.Votes
	}

	if n := float64(len(layers.Pins)); n > 0 {
		layers.Center = spatial.Point{Lat: sumLat / n, Lng: sumLng / n}
	}

	if len(layers.Heat) > 0 {
		bins, err := spatial.HexBins(layers.Heat, s.H3Resolution)
		if err != nil {
			return nil, stats, err
		}

		layers.HexBins = bins
	}

	return layers, stats, nil
}
