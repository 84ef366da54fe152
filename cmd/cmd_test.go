// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urnamapa/urnamapa/aggregate"
	"github.com/urnamapa/urnamapa/analysis"
	"github.com/urnamapa/urnamapa/config"
	"github.com/urnamapa/urnamapa/geocache"
	"github.com/urnamapa/urnamapa/geocode"
	"github.com/urnamapa/urnamapa/spatial"
)

const resultFile = `"NR_ZONA";"NR_SECAO";"DS_LOCAL_VOTACAO_ENDERECO";"NM_LOCAL_VOTACAO";"NM_MUNICIPIO";"NM_VOTAVEL";"DS_CARGO";"QT_VOTOS";"HH_GERACAO"
"8";"1";"RUA A, 10";"ESCOLA A";"RIO BRANCO";"MARIA";"Prefeito";"1200";"17:05:00"
"9";"1";"RUA B, 20";"ESCOLA B";"XAPURI";"JOAO";"Prefeito";"7";"16:30:00"
`

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer

	printReport(&buf, &analysis.CandidateReport{
		Candidate:      "MARIA",
		TotalVotes:     1200,
		Municipalities: []aggregate.Row{{Key: []string{"RIO BRANCO"}, Votes: 1200}},
		Hourly:         []aggregate.HourRow{{Hour: 7, Votes: 1200}},
		Maps:           &analysis.MapLayers{Center: analysis.DefaultCenter, Unresolved: 1},
	})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "MARIA: 1.200 votos\n"), out)
	assert.Contains(t, out, "RIO BRANCO")
	assert.Contains(t, out, "07h")
	assert.NotContains(t, out, "Bairros", "empty sections are left out")
	assert.Contains(t, out, "1 sem coordenadas")
}

func TestPrintComparison(t *testing.T) {
	var buf bytes.Buffer

	printComparison(&buf, &analysis.Comparison{
		First:  "MARIA",
		Second: "JOAO",
		Share: []aggregate.Slice{
			{Label: "MARIA", Votes: 3, Share: 0.75},
			{Label: "JOAO", Votes: 1, Share: 0.25},
		},
		Municipalities: []aggregate.ComparisonRow{{Key: "XAPURI", First: 3, Second: 1, InFirst: true, InSecond: true}},
	})

	out := buf.String()
	assert.Contains(t, out, "MARIA x JOAO")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "XAPURI")
}

func TestPrintArea(t *testing.T) {
	var buf bytes.Buffer

	printArea(&buf, nil)
	assert.Equal(t, "nenhum voto dentro da área\n", buf.String())

	buf.Reset()
	printArea(&buf, []analysis.AreaResult{{Candidate: "ANA", Office: "Vereador", Votes: 20}})
	assert.Equal(t, "ANA  Vereador  20\n", buf.String())
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer

	printEntries(&buf, map[string]spatial.Point{
		"rua b": {Lat: -2, Lng: -3},
		"rua a": {Lat: -1, Lng: -2},
	})

	assert.Equal(t, "rua a\tPOINT(-2.000000 -1.000000)\nrua b\tPOINT(-3.000000 -2.000000)\n", buf.String())
}

func TestGeocodeLines(t *testing.T) {
	g := geocode.Func(func(_ context.Context, address string) (spatial.Point, error) {
		if address == "Rua A" {
			return spatial.Point{Lat: -9, Lng: -67}, nil
		}

		return spatial.Point{}, &geocode.Error{Type: geocode.ErrorTypeNotFound, Message: "no results"}
	})

	var buf bytes.Buffer
	require.NoError(t, geocodeLines(context.Background(), g, strings.NewReader("Rua A\n\n  Lugar Nenhum \n"), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Rua A\tPOINT(-67.000000 -9.000000)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Lugar Nenhum\t"+geocode.ErrorTypeNotFound.String()), lines[1])
}

func TestNewEnvWithoutGeocoder(t *testing.T) {
	dir := t.TempDir()

	nb := filepath.Join(dir, "bairros.csv")
	require.NoError(t, os.WriteFile(nb, []byte("ZONA;SEÇÃO;BAIRRO\n8;1;Centro\n"), 0o600))

	e, err := newEnv(context.Background(), &config.Config{
		Geocode: config.GeocodeConfig{AddressSuffix: ", Acre", Workers: 2},
		Cache:   config.CacheConfig{Backend: geocache.BackendJSON, Path: filepath.Join(dir, "cache.json")},
		Data:    config.DataConfig{Neighborhoods: nb},
		Map:     config.MapConfig{H3Resolution: 8},
	}, false)
	require.NoError(t, err)
	defer e.Close()

	assert.Nil(t, e.service.Pipeline.Geocoder)
	assert.Equal(t, "Rua A, Acre", e.service.GeocodeAddress("Rua A"))

	name, ok := e.service.Neighborhoods.Lookup("8", "1")
	assert.True(t, ok)
	assert.Equal(t, "Centro", name)
}

func TestNewGeocoderNeedsKey(t *testing.T) {
	_, err := newGeocoder(context.Background(), config.GeocodeConfig{Provider: geocode.ProviderOpenCage})
	assert.Error(t, err)
}

// commandDir prepares an empty working directory holding votos.csv.
func commandDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("URNA_CACHE_PATH", filepath.Join(dir, "cache.json"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "votos.csv"), []byte(resultFile), 0o600))

	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		outputJSON = false
	})

	return dir
}

func runCommand(args ...string) (string, error) {
	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestCompareCommand(t *testing.T) {
	commandDir(t)

	out, err := runCommand("compare", "votos.csv", "MARIA", "JOAO", "--json")
	require.NoError(t, err)

	var c analysis.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, int64(1200), c.FirstTotal)
	assert.Equal(t, int64(7), c.SecondTotal)

	_, err = runCommand("compare", "votos.csv", "MARIA", "NOBODY")
	assert.Error(t, err)
}

func TestCacheImportCommand(t *testing.T) {
	dir := commandDir(t)

	src := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"Rua  Ceará, 10, Acre": [-9.9, -67.8]}`), 0o600))

	_, err := runCommand("cache", "import", src)
	require.NoError(t, err)

	out, err := runCommand("cache", "list")
	require.NoError(t, err)
	assert.Equal(t, "rua ceara, 10, acre\tPOINT(-67.800000 -9.900000)\n", out)

	_, err = runCommand("cache", "import", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
