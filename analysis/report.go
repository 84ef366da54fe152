// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/aggregate"
	"github.com/urnamapa/urnamapa/pipeline"
	"github.com/urnamapa/urnamapa/votes"
)

// Chart sizes.
const (
	TopMunicipalities = 22
	TopNeighborhoods  = 10
	TopAreaCandidates = 10
)

// CandidateReport is everything shown for one candidate.
type CandidateReport struct {
	Candidate         string              `json:"candidate"`
	TotalVotes        int64               `json:"total_votes"`
	Maps              *MapLayers          `json:"maps"`
	Municipalities    []aggregate.Row     `json:"municipalities"`
	MunicipalityShare []aggregate.Slice   `json:"municipality_share"`
	Hourly            []aggregate.HourRow `json:"hourly"`
	Neighborhoods     []aggregate.Row     `json:"neighborhoods,omitempty"`
	NeighborhoodShare []aggregate.Slice   `json:"neighborhood_share,omitempty"`
	Zones             []aggregate.Row     `json:"zones"`
	Sections          []aggregate.Row     `json:"sections"`
	Geocoding         pipeline.Stats      `json:"geocoding"`
}

// CandidateReport builds the report of candidate over the records of one
// file. Parse and join failures abort the report.
func (s *Service) CandidateReport(ctx context.Context, records []votes.Record, candidate string) (*CandidateReport, error) {
	selected, err := s.candidateRecords(records, candidate)
	if err != nil {
		return nil, err
	}

	rep := &CandidateReport{
		Candidate:  candidate,
		TotalVotes: aggregate.Total(selected),
	}

	municipalities, err := aggregate.GroupAndSum(selected, aggregate.Municipality)
	if err != nil {
		return nil, err
	}

	rep.Municipalities = aggregate.TopN(municipalities, TopMunicipalities)
	rep.MunicipalityShare = aggregate.Shares(municipalities)

	if rep.Hourly, err = aggregate.Hourly(selected); err != nil {
		return nil, err
	}

	if s.Neighborhoods != nil {
		neighborhoods, err := aggregate.GroupAndSum(selected, aggregate.Neighborhood)
		if err != nil {
			return nil, err
		}

		rep.Neighborhoods = aggregate.TopN(neighborhoods, TopNeighborhoods)
		rep.NeighborhoodShare = aggregate.Shares(neighborhoods)
	}

	if rep.Zones, err = aggregate.GroupAndSum(selected, aggregate.Zone); err != nil {
		return nil, err
	}

	if rep.Sections, err = aggregate.GroupAndSum(selected, aggregate.Section); err != nil {
		return nil, err
	}

	if rep.Maps, rep.Geocoding, err = s.Maps(ctx, selected); err != nil {
		return nil, eris.Wrap(err, "building maps")
	}

	return rep, nil
}

// Comparison puts two candidates side by side.
type Comparison struct {
	First          string                    `json:"first"`
	Second         string                    `json:"second"`
	FirstTotal     int64                     `json:"first_total"`
	SecondTotal    int64                     `json:"second_total"`
	Share          []aggregate.Slice         `json:"share"`
	Municipalities []aggregate.ComparisonRow `json:"municipalities"`
	Hourly         []aggregate.ComparisonRow `json:"hourly"`
}

// Compare builds the comparison of two candidates of the same file.
func (s *Service) Compare(records []votes.Record, first, second string) (*Comparison, error) {
	// no neighborhood view here, so the reference table is not joined
	a := votes.ByCandidate(records, first)
	if len(a) == 0 {
		return nil, eris.Wrapf(ErrNoVotes, "%q", first)
	}

	b := votes.ByCandidate(records, second)
	if len(b) == 0 {
		return nil, eris.Wrapf(ErrNoVotes, "%q", second)
	}

	cmp := &Comparison{
		First:       first,
		Second:      second,
		FirstTotal:  aggregate.Total(a),
		SecondTotal: aggregate.Total(b),
	}

	cmp.Share = aggregate.Shares([]aggregate.Row{
		{Key: []string{first}, Votes: cmp.FirstTotal},
		{Key: []string{second}, Votes: cmp.SecondTotal},
	})

	if cmp.Municipalities, err = aggregate.Compare(a, b, aggregate.Municipality); err != nil {
		return nil, err
	}

	if cmp.Hourly, err = aggregate.Compare(a, b, aggregate.Hour); err != nil {
		return nil, err
	}

	return cmp, nil
}
