// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis builds the views served by the API and the CLI out of
// loaded vote records: candidate reports, comparisons, map layers and
// area queries.
package analysis

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/pipeline"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/votes"
)

// DefaultCenter is downtown Rio Branco, used when nothing could be placed.
var DefaultCenter = spatial.Point{Lat: -9.975377, Lng: -67.824897}

// ErrNoVotes is returned when a candidate has no records in the file.
var ErrNoVotes = eris.New("no records for candidate")

// Service builds views. It is safe for concurrent use once configured.
type Service struct {
	Pipeline *pipeline.Pipeline

	// Neighborhoods, when not nil, is joined into every report.
	Neighborhoods votes.Neighborhoods

	// AddressSuffix is appended to polling place addresses before
	// geocoding, e.g. ", Acre".
	AddressSuffix string

	// H3Resolution of the hexbin layer.
	H3Resolution int
}

// GeocodeAddress returns the text sent to the geocoder for a polling place
// address.
func (s *Service) GeocodeAddress(address string) string {
	return address + s.AddressSuffix
}

// Locate resolves the polling place of every record.
func (s *Service) Locate(ctx context.Context, records []votes.Record) ([]spatial.Located[votes.Record], pipeline.Stats) {
	items := make([]pipeline.Item[votes.Record], len(records))
	for i, r := range records {
		items[i] = pipeline.Item[votes.Record]{Address: s.GeocodeAddress(r.Address), Value: r}
	}

	results, stats := pipeline.ResolveBatch(ctx, s.Pipeline, items)

	ret := make([]spatial.Located[votes.Record], len(results))
	for i, r := range results {
		ret[i] = spatial.Located[votes.Record]{Point: r.Point, Value: r.Value}
	}

	return ret, stats
}

func (s *Service) candidateRecords(records []votes.Record, candidate string) ([]votes.Record, error) {
	selected := votes.ByCandidate(records, candidate)
	if len(selected) == 0 {
		return nil, eris.Wrapf(ErrNoVotes, "%q", candidate)
	}

	if s.Neighborhoods == nil {
		return selected, nil
	}

	return votes.Join(selected, s.Neighborhoods)
}
