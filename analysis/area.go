// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"

	"github.com/urnamapa/urnamapa/aggregate"
	"github.com/urnamapa/urnamapa/pipeline"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/votes"
	"go.uber.org/zap"
)

// AreaResult is a candidate's vote count inside an area.
type AreaResult struct {
	Candidate string `json:"candidate"`
	Office    string `json:"office"`
	Votes     int64  `json:"votes"`
}

// AnalyzeArea returns the top vote getters among the records whose polling
// place lies inside polygon. Records that could not be geocoded are left
// out.
func (s *Service) AnalyzeArea(ctx context.Context, records []votes.Record, polygon *spatial.Polygon) ([]AreaResult, pipeline.Stats, error) {
	located, stats := s.Locate(ctx, records)
	inside := spatial.FilterInside(polygon, located)

	zap.L().Debug("area query",
		zap.Stringer("polygon", polygon),
		zap.Int("records", len(records)),
		zap.Int("inside", len(inside)),
		zap.Int("unresolved", stats.Failed),
	)

	rows, err := aggregate.GroupAndSum(inside, aggregate.Candidate, aggregate.Office)
	if err != nil {
		return nil, stats, err
	}

	top := aggregate.TopN(rows, TopAreaCandidates)

	ret := make([]AreaResult, len(top))
	for i, r := range top {
		ret[i] = AreaResult{Candidate: r.Key[0], Office: r.Key[1], Votes: r.Votes}
	}

	return ret, stats, nil
}
