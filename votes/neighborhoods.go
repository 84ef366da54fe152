// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package votes

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/utils/textutils"
	"golang.org/x/text/encoding/charmap"
)

// Reference table columns, compared accent and case insensitive.
const (
	refZone         = "ZONA"
	refSection      = "SEÇÃO"
	refNeighborhood = "BAIRRO"
)

// SectionKey identifies a section of the electoral roll.
type SectionKey struct {
	Zone    string
	Section string
}

// NewSectionKey normalizes zone and section numbers so "008" and "8" match.
func NewSectionKey(zone, section string) SectionKey {
	return SectionKey{Zone: canonicalNumber(zone), Section: canonicalNumber(section)}
}

func canonicalNumber(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}

	return s
}

// Neighborhoods maps each section to the neighborhood of its polling place.
// It is read only once loaded.
type Neighborhoods map[SectionKey]string

// LoadNeighborhoodsFile reads the reference table at path.
func LoadNeighborhoodsFile(path string) (Neighborhoods, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, eris.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	nb, err := LoadNeighborhoods(f)
	if err != nil {
		return nil, eris.Wrapf(err, "loading %s", filepath.Base(path))
	}

	return nb, nil
}

// LoadNeighborhoods reads a ';' separated ZONA;SEÇÃO;BAIRRO table, either
// UTF-8 or Latin-1 encoded.
func LoadNeighborhoods(r io.Reader) (Neighborhoods, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "reading neighborhoods")
	}

	if !utf8.Valid(data) {
		if data, err = charmap.ISO8859_1.NewDecoder().Bytes(data); err != nil {
			return nil, eris.Wrapf(ErrParseFailure, "decoding latin-1: %v", err)
		}
	}

	cr := newReader(bytes.NewReader(data))

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, eris.Wrap(ErrParseFailure, "empty neighborhoods file")
	}

	if err != nil {
		return nil, eris.Wrapf(ErrParseFailure, "reading header: %v", err)
	}

	idx, err := columnIndex(header, []string{refZone, refSection, refNeighborhood}, textutils.LowerASCIIFolding)
	if err != nil {
		return nil, err
	}

	ret := make(Neighborhoods)

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, eris.Wrapf(ErrParseFailure, "line %d: %v", line, err)
		}

		cell := func(col string) string {
			if i := idx[col]; i < len(row) {
				return strings.TrimSpace(row[i])
			}

			return ""
		}

		name := cell(refNeighborhood)
		if name == "" {
			continue
		}

		ret[NewSectionKey(cell(refZone), cell(refSection))] = name
	}

	return ret, nil
}

// Lookup returns the neighborhood of a section.
func (nb Neighborhoods) Lookup(zone, section string) (string, bool) {
	name, ok := nb[NewSectionKey(zone, section)]

	return name, ok
}

// Join returns a copy of records with Neighborhood filled from nb. Records
// without a match keep an empty neighborhood. It fails with ErrJoinFailure
// when records is not empty and nothing matched.
func Join(records []Record, nb Neighborhoods) ([]Record, error) {
	ret := make([]Record, len(records))
	matched := 0

	for i, r := range records {
		if name, ok := nb.Lookup(r.Zone, r.Section); ok {
			r.Neighborhood = name
			matched++
		}

		ret[i] = r
	}

	if len(records) > 0 && matched == 0 {
		return nil, eris.Wrapf(ErrJoinFailure, "%d records, %d reference sections", len(records), len(nb))
	}

	return ret, nil
}
