// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/urnamapa/urnamapa/votes"
)

// ComparisonRow holds the votes of one group value in two record sets.
// A value missing from one side has zero votes there and the matching
// In flag false, so a real zero can be told apart from an absence.
type ComparisonRow struct {
	Key      string `json:"key"`
	First    int64  `json:"first"`
	Second   int64  `json:"second"`
	InFirst  bool   `json:"in_first"`
	InSecond bool   `json:"in_second"`
}

// Compare groups a and b by field and joins the results. Every value present
// on either side gets a row. Rows are sorted by First+Second descending,
// ties in first appearance order (values of a, then values only in b).
// When field is Hour the rows are sorted by hour instead.
func Compare(a, b []votes.Record, field Field) ([]ComparisonRow, error) {
	first, err := sumsInOrder(a, field)
	if err != nil {
		return nil, err
	}

	second, err := sumsInOrder(b, field)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	rows := make([]ComparisonRow, 0, len(first)+len(second))

	for _, r := range first {
		index[r.Key[0]] = len(rows)
		rows = append(rows, ComparisonRow{Key: r.Key[0], First: r.Votes, InFirst: true})
	}

	for _, r := range second {
		i, ok := index[r.Key[0]]
		if !ok {
			i = len(rows)
			rows = append(rows, ComparisonRow{Key: r.Key[0]})
		}

		rows[i].Second = r.Votes
		rows[i].InSecond = true
	}

	if field == Hour {
		slices.SortFunc(rows, func(x, y ComparisonRow) int {
			hx, _ := strconv.Atoi(x.Key)
			hy, _ := strconv.Atoi(y.Key)

			return hx - hy
		})

		return rows, nil
	}

	slices.SortStableFunc(rows, func(x, y ComparisonRow) int {
		return cmp.Compare(y.First+y.Second, x.First+x.Second)
	})

	return rows, nil
}

// sumsInOrder groups by field keeping first appearance order.
func sumsInOrder(records []votes.Record, field Field) ([]Row, error) {
	rows, err := GroupAndSum(records, field)
	if err != nil {
		return nil, err
	}

	order := make(map[string]int)

	for i := range records {
		v, ok, _ := field.value(&records[i])
		if _, seen := order[v]; ok && !seen {
			order[v] = len(order)
		}
	}

	slices.SortFunc(rows, func(x, y Row) int {
		return order[x.Key[0]] - order[y.Key[0]]
	})

	return rows, nil
}
