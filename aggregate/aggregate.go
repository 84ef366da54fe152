// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package aggregate reduces vote records into ranked group-by summaries.
package aggregate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/votes"
)

// Field is a record attribute records can be grouped by.
type Field int

// Groupable fields.
const (
	Candidate Field = iota
	Office
	Municipality
	Neighborhood
	Zone
	Section
	Hour
	Address
	Place
)

var fieldNames = [...]string{
	Candidate:    "candidate",
	Office:       "office",
	Municipality: "municipality",
	Neighborhood: "neighborhood",
	Zone:         "zone",
	Section:      "section",
	Hour:         "hour",
	Address:      "address",
	Place:        "place",
}

func (f Field) String() string {
	if f >= 0 && int(f) < len(fieldNames) {
		return fieldNames[f]
	}

	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField is the inverse of Field.String.
func ParseField(s string) (Field, error) {
	for i, name := range fieldNames {
		if strings.EqualFold(s, name) {
			return Field(i), nil
		}
	}

	return 0, eris.Errorf("unknown field %q", s)
}

// value returns the grouping value of r. ok is false for records that don't
// take part in the grouping (no neighborhood).
func (f Field) value(r *votes.Record) (v string, ok bool, err error) {
	switch f {
	case Candidate:
		return r.Candidate, true, nil
	case Office:
		return r.Office, true, nil
	case Municipality:
		return r.Municipality, true, nil
	case Neighborhood:
		return r.Neighborhood, r.Neighborhood != "", nil
	case Zone:
		return r.Zone, true, nil
	case Section:
		return r.Section, true, nil
	case Address:
		return r.Address, true, nil
	case Place:
		return r.Place, true, nil
	case Hour:
		h, err := HourOf(r.GeneratedAt)
		if err != nil {
			return "", false, err
		}

		return strconv.Itoa(h), true, nil
	default:
		return "", false, eris.Errorf("unknown field %d", int(f))
	}
}

// Row is the summed vote count of one group.
type Row struct {
	Key   []string `json:"key"`
	Votes int64    `json:"votes"`
}

// Label joins the key tuple for display.
func (r Row) Label() string {
	return strings.Join(r.Key, " / ")
}

// GroupAndSum sums vote counts per distinct tuple of fields. Rows are
// sorted by descending votes; ties keep the order in which keys were first
// seen. Grouping by Hour fails with votes.ErrParseFailure on the first
// malformed generation time. Records without a neighborhood are left out
// when grouping by Neighborhood.
func GroupAndSum(records []votes.Record, fields ...Field) ([]Row, error) {
	if len(fields) == 0 {
		return nil, eris.New("aggregate: no grouping fields")
	}

	index := make(map[string]int)
	rows := make([]Row, 0)

	for i := range records {
		r := &records[i]
		key := make([]string, len(fields))
		skip := false

		for j, f := range fields {
			v, ok, err := f.value(r)
			if err != nil {
				return nil, err
			}

			if !ok {
				skip = true

				break
			}

			key[j] = v
		}

		if skip {
			continue
		}

		// \x00 can't appear in CSV text
		k := strings.Join(key, "\x00")

		n, seen := index[k]
		if !seen {
			n = len(rows)
			index[k] = n
			rows = append(rows, Row{Key: key})
		}

		rows[n].Votes += r.Votes
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		switch {
		case a.Votes > b.Votes:
			return -1
		case a.Votes < b.Votes:
			return 1
		default:
			return 0
		}
	})

	return rows, nil
}

// TopN returns the first n rows.
func TopN[T any](rows []T, n int) []T {
	if n < 0 {
		n = 0
	}

	return rows[:min(n, len(rows))]
}

// Total sums every vote count.
func Total(records []votes.Record) int64 {
	var total int64
	for i := range records {
		total += records[i].Votes
	}

	return total
}

// HourOf parses a generation time in HH:MM:SS and returns the hour.
func HourOf(s string) (int, error) {
	t, err := time.Parse(time.TimeOnly, strings.TrimSpace(s))
	if err != nil {
		return 0, eris.Wrapf(votes.ErrParseFailure, "generation time %q is not HH:MM:SS", s)
	}

	return t.Hour(), nil
}

// HourRow is the vote count of one hour of the day.
type HourRow struct {
	Hour  int   `json:"hour"`
	Votes int64 `json:"votes"`
}

// Hourly sums votes per hour of generation time, ascending by hour.
func Hourly(records []votes.Record) ([]HourRow, error) {
	rows, err := GroupAndSum(records, Hour)
	if err != nil {
		return nil, err
	}

	ret := make([]HourRow, len(rows))
	for i, r := range rows {
		h, _ := strconv.Atoi(r.Key[0])
		ret[i] = HourRow{Hour: h, Votes: r.Votes}
	}

	slices.SortFunc(ret, func(a, b HourRow) int { return a.Hour - b.Hour })

	return ret, nil
}

// Slice is a row with its share of the total, for proportion charts.
type Slice struct {
	Label string  `json:"label"`
	Votes int64   `json:"votes"`
	Share float64 `json:"share"`
}

// Shares computes each row's fraction of the sum of rows.
func Shares(rows []Row) []Slice {
	var total int64
	for _, r := range rows {
		total += r.Votes
	}

	ret := make([]Slice, len(rows))
	for i, r := range rows {
		ret[i] = Slice{Label: r.Label(), Votes: r.Votes}
		if total > 0 {
			ret[i].Share = float64(r.Votes) / float64(total)
		}
	}

	return ret
}
