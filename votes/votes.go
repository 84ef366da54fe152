// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package votes loads per polling station result files ("boletim de urna"
// exports) and joins them with the neighborhood reference table.
package votes

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrParseFailure is returned for malformed input: missing columns,
	// non numeric vote counts or generation times not in HH:MM:SS.
	ErrParseFailure = eris.New("parse failure")

	// ErrJoinFailure is returned when no record matches the neighborhood
	// reference table.
	ErrJoinFailure = eris.New("no correspondence found between votes and polling places")
)

// Column names of the result file.
const (
	ColZone         = "NR_ZONA"
	ColSection      = "NR_SECAO"
	ColAddress      = "DS_LOCAL_VOTACAO_ENDERECO"
	ColPlace        = "NM_LOCAL_VOTACAO"
	ColMunicipality = "NM_MUNICIPIO"
	ColCandidate    = "NM_VOTAVEL"
	ColOffice       = "DS_CARGO"
	ColVotes        = "QT_VOTOS"
	ColGeneratedAt  = "HH_GERACAO"
)

var requiredColumns = []string{
	ColZone, ColSection, ColAddress, ColPlace, ColMunicipality,
	ColCandidate, ColOffice, ColVotes, ColGeneratedAt,
}

// Record is one row of a result file: the votes a candidate got in one
// section. Neighborhood is empty until Join fills it.
type Record struct {
	Zone         string `json:"zone"`
	Section      string `json:"section"`
	Address      string `json:"address"`
	Place        string `json:"place"`
	Municipality string `json:"municipality"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Candidate    string `json:"candidate"`
	Office       string `json:"office"`
	Votes        int64  `json:"votes"`
	GeneratedAt  string `json:"generated_at"`
}

// LoadFile reads a result file.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, eris.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	records, err := Load(f)
	if err != nil {
		return nil, eris.Wrapf(err, "loading %s", filepath.Base(path))
	}

	return records, nil
}

// Load reads a ';' separated, Latin-1 encoded result file. Every required
// column must be present in the header.
func Load(r io.Reader) ([]Record, error) {
	cr := newReader(charmap.ISO8859_1.NewDecoder().Reader(r))

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, eris.Wrap(ErrParseFailure, "empty file")
	}

	if err != nil {
		return nil, eris.Wrapf(ErrParseFailure, "reading header: %v", err)
	}

	idx, err := columnIndex(header, requiredColumns, strings.TrimSpace)
	if err != nil {
		return nil, err
	}

	var ret []Record

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, eris.Wrapf(ErrParseFailure, "line %d: %v", line, err)
		}

		get := func(col string) string {
			i := idx[col]
			if i >= len(row) {
				return ""
			}

			return strings.TrimSpace(row[i])
		}

		votes, err := strconv.ParseInt(get(ColVotes), 10, 64)
		if err != nil {
			return nil, eris.Wrapf(ErrParseFailure, "line %d: %s %q is not a number", line, ColVotes, get(ColVotes))
		}

		ret = append(ret, Record{
			Zone:         get(ColZone),
			Section:      get(ColSection),
			Address:      get(ColAddress),
			Place:        get(ColPlace),
			Municipality: get(ColMunicipality),
			Candidate:    get(ColCandidate),
			Office:       get(ColOffice),
			Votes:        votes,
			GeneratedAt:  get(ColGeneratedAt),
		})
	}

	return ret, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return cr
}

// columnIndex maps each wanted column to its position in header. Header
// cells are passed through fold before comparing.
func columnIndex(header, wanted []string, fold func(string) string) (map[string]int, error) {
	pos := make(map[string]int, len(header))

	for i, h := range header {
		h = fold(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	ret := make(map[string]int, len(wanted))

	var missing []string

	for _, col := range wanted {
		i, ok := pos[fold(col)]
		if !ok {
			missing = append(missing, col)

			continue
		}

		ret[col] = i
	}

	if len(missing) > 0 {
		return nil, eris.Wrapf(ErrParseFailure, "missing columns %s", strings.Join(missing, ", "))
	}

	return ret, nil
}

// ByCandidate returns the records of one candidate, in file order.
func ByCandidate(records []Record, candidate string) []Record {
	var ret []Record

	for _, r := range records {
		if r.Candidate == candidate {
			ret = append(ret, r)
		}
	}

	return ret
}

// Office lists the candidates that ran for one office.
type Office struct {
	Name       string   `json:"name"`
	Candidates []string `json:"candidates"`
}

// Offices lists every office and its candidates in order of first
// appearance.
func Offices(records []Record) []Office {
	var ret []Office

	index := make(map[string]int)
	seen := make(map[[2]string]bool)

	for _, r := range records {
		i, ok := index[r.Office]
		if !ok {
			i = len(ret)
			index[r.Office] = i
			ret = append(ret, Office{Name: r.Office})
		}

		k := [2]string{r.Office, r.Candidate}
		if !seen[k] {
			seen[k] = true
			ret[i].Candidates = append(ret[i].Candidates, r.Candidate)
		}
	}

	return ret
}
