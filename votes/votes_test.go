// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package votes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const header = `"NR_ZONA";"NR_SECAO";"DS_LOCAL_VOTACAO_ENDERECO";"NM_LOCAL_VOTACAO";"NM_MUNICIPIO";"NM_VOTAVEL";"DS_CARGO";"QT_VOTOS";"HH_GERACAO";"SG_UF"`

func latin1(t *testing.T, s string) string {
	t.Helper()

	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)

	return out
}

func TestLoad(t *testing.T) {
	input := latin1(t, strings.Join([]string{
		header,
		`"8";"12";"RUA CEARÁ, 100";"ESCOLA SÃO JOSÉ";"RIO BRANCO";"MARIA";"Prefeito";"10";"17:02:11";"AC"`,
		`"8";"13";"RUA CEARÁ, 100";"ESCOLA SÃO JOSÉ";"RIO BRANCO";"JOÃO";"Prefeito";"4";"17:05:40";"AC"`,
		`"9";"1";"AV. BRASIL";"COLÉGIO ACREANO";"XAPURI";"MARIA";"Prefeito";"0";"18:00:00";"AC"`,
	}, "\n"))

	records, err := Load(strings.NewReader(input))
	require.NoError(t, err)

	want := []Record{
		{Zone: "8", Section: "12", Address: "RUA CEARÁ, 100", Place: "ESCOLA SÃO JOSÉ", Municipality: "RIO BRANCO", Candidate: "MARIA", Office: "Prefeito", Votes: 10, GeneratedAt: "17:02:11"},
		{Zone: "8", Section: "13", Address: "RUA CEARÁ, 100", Place: "ESCOLA SÃO JOSÉ", Municipality: "RIO BRANCO", Candidate: "JOÃO", Office: "Prefeito", Votes: 4, GeneratedAt: "17:05:40"},
		{Zone: "9", Section: "1", Address: "AV. BRASIL", Place: "COLÉGIO ACREANO", Municipality: "XAPURI", Candidate: "MARIA", Office: "Prefeito", Votes: 0, GeneratedAt: "18:00:00"},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", `"NR_ZONA";"NR_SECAO";"QT_VOTOS"` + "\n" + `"1";"2";"3"`},
		{"bad votes", header + "\n" + `"8";"12";"A";"B";"C";"D";"E";"dez";"17:02:11";"AC"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrParseFailure), "got %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votos.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"\n"+`"8";"12";"A";"B";"C";"D";"E";"7";"17:02:11";"AC"`), 0o600))

	records, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(7), records[0].Votes)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestOfficesAndByCandidate(t *testing.T) {
	records := []Record{
		{Office: "Prefeito", Candidate: "MARIA", Votes: 1},
		{Office: "Vereador", Candidate: "ANA", Votes: 2},
		{Office: "Prefeito", Candidate: "JOÃO", Votes: 3},
		{Office: "Prefeito", Candidate: "MARIA", Votes: 4},
	}

	assert.Equal(t, []Office{
		{Name: "Prefeito", Candidates: []string{"MARIA", "JOÃO"}},
		{Name: "Vereador", Candidates: []string{"ANA"}},
	}, Offices(records))

	maria := ByCandidate(records, "MARIA")
	require.Len(t, maria, 2)
	assert.Equal(t, int64(5), maria[0].Votes+maria[1].Votes)
	assert.Empty(t, ByCandidate(records, "NOBODY"))
}
