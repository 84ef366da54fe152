// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"
	"github.com/urnamapa/urnamapa/votes"
)

func TestCompareOuterJoin(t *testing.T) {
	first := []votes.Record{
		{Municipality: "A", Votes: 4},
		{Municipality: "B", Votes: 1},
	}
	second := []votes.Record{
		{Municipality: "B", Votes: 2},
		{Municipality: "C", Votes: 9},
	}

	rows, err := Compare(first, second, Municipality)
	require.NoError(t, err)

	want := []ComparisonRow{
		{Key: "C", First: 0, Second: 9, InFirst: false, InSecond: true},
		{Key: "A", First: 4, Second: 0, InFirst: true, InSecond: false},
		{Key: "B", First: 1, Second: 2, InFirst: true, InSecond: true},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Compare() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareTiesKeepAppearanceOrder(t *testing.T) {
	first := []votes.Record{{Zone: "2", Votes: 1}, {Zone: "1", Votes: 1}}
	second := []votes.Record{{Zone: "3", Votes: 1}, {Zone: "1", Votes: 0}}

	rows, err := Compare(first, second, Zone)
	require.NoError(t, err)

	want := []ComparisonRow{
		{Key: "2", First: 1, InFirst: true},
		{Key: "1", First: 1, InFirst: true, InSecond: true},
		{Key: "3", Second: 1, InSecond: true},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Compare() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareByHour(t *testing.T) {
	first := []votes.Record{{GeneratedAt: "17:00:00", Votes: 100}, {GeneratedAt: "09:30:00", Votes: 1}}
	second := []votes.Record{{GeneratedAt: "12:00:00", Votes: 5}}

	rows, err := Compare(first, second, Hour)
	require.NoError(t, err)

	want := []ComparisonRow{
		{Key: "9", First: 1, InFirst: true},
		{Key: "12", Second: 5, InSecond: true},
		{Key: "17", First: 100, InFirst: true},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Compare() mismatch (-want +got):\n%s", diff)
	}

	_, err = Compare(first, []votes.Record{{GeneratedAt: "noon"}}, Hour)
	require.Error(t, err)
	require.True(t, eris.Is(err, votes.ErrParseFailure))
}
