// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/urnamapa/urnamapa/aggregate"
	"github.com/urnamapa/urnamapa/analysis"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/utils/textutils"
	"github.com/urnamapa/urnamapa/votes"
)

var outputJSON bool

var reportCmd = &cobra.Command{
	Use:   "report <boletim.csv> <candidato>",
	Short: "Resumo dos votos de um candidato",
	Long: `Imprime o total de votos, os municípios, bairros, zonas e seções com mais
votos, a série por hora e um resumo das camadas do mapa de um candidato.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := votes.LoadFile(args[0])
		if err != nil {
			return err
		}

		e, err := newEnv(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		rep, err := e.service.CandidateReport(cmd.Context(), records, args[1])
		if err != nil {
			return err
		}

		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), rep)
		}

		printReport(cmd.OutOrStdout(), rep)

		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <boletim.csv> <candidato1> <candidato2>",
	Short: "Compara dois candidatos por município e por hora",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := votes.LoadFile(args[0])
		if err != nil {
			return err
		}

		e, err := newEnv(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer e.Close()

		c, err := e.service.Compare(records, args[1], args[2])
		if err != nil {
			return err
		}

		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), c)
		}

		printComparison(cmd.OutOrStdout(), c)

		return nil
	},
}

var areaCmd = &cobra.Command{
	Use:   "area <boletim.csv> <area.geojson>",
	Short: "Candidatos mais votados dentro de um polígono",
	Long: `Lê um Polygon, MultiPolygon ou Feature GeoJSON e imprime os candidatos mais
votados nos locais de votação dentro da área.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(filepath.Clean(args[1]))
		if err != nil {
			return err
		}

		polygon, err := spatial.ParsePolygon(data)
		if err != nil {
			return err
		}

		records, err := votes.LoadFile(args[0])
		if err != nil {
			return err
		}

		e, err := newEnv(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		results, stats, err := e.service.AnalyzeArea(cmd.Context(), records, polygon)
		if err != nil {
			return err
		}

		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), results)
		}

		printArea(cmd.OutOrStdout(), results)
		fmt.Fprintf(cmd.ErrOrStderr(), "%d endereços, %d sem coordenadas\n", stats.Distinct, stats.Failed)

		return nil
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func printRows(w io.Writer, title string, rows []aggregate.Row, limit int) {
	if len(rows) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s\n", title)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, r := range aggregate.TopN(rows, limit) {
		fmt.Fprintf(tw, "%s\t%s\t\n", r.Label(), textutils.FormatInt(r.Votes))
	}

	_ = tw.Flush()
}

func printShares(w io.Writer, slices []aggregate.Slice) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, s := range slices {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t\n", s.Label, textutils.FormatInt(s.Votes), 100*s.Share)
	}

	_ = tw.Flush()
}

func printReport(w io.Writer, rep *analysis.CandidateReport) {
	fmt.Fprintf(w, "%s: %s votos\n", rep.Candidate, textutils.FormatInt(rep.TotalVotes))

	printRows(w, "Municípios", rep.Municipalities, analysis.TopMunicipalities)
	printRows(w, "Bairros", rep.Neighborhoods, analysis.TopNeighborhoods)
	printRows(w, "Zonas", rep.Zones, 10)
	printRows(w, "Seções", rep.Sections, 10)

	if len(rep.Hourly) > 0 {
		fmt.Fprintf(w, "\nPor hora\n")

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, h := range rep.Hourly {
			fmt.Fprintf(tw, "%02dh\t%s\t\n", h.Hour, textutils.FormatInt(h.Votes))
		}

		_ = tw.Flush()
	}

	if m := rep.Maps; m != nil {
		fmt.Fprintf(w, "\nMapa: %d locais, %d pontos de calor, %d hexágonos, %d sem coordenadas, centro %s\n",
			len(m.Pins), len(m.Heat), len(m.HexBins), m.Unresolved, m.Center)
	}
}

func printComparison(w io.Writer, c *analysis.Comparison) {
	fmt.Fprintf(w, "%s x %s\n", c.First, c.Second)
	printShares(w, c.Share)

	for _, section := range []struct {
		title string
		rows  []aggregate.ComparisonRow
	}{
		{"Municípios", c.Municipalities},
		{"Por hora", c.Hourly},
	} {
		fmt.Fprintf(w, "\n%s\n", section.title)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "\t%s\t%s\t\n", c.First, c.Second)

		for _, r := range section.rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", r.Key, textutils.FormatInt(r.First), textutils.FormatInt(r.Second))
		}

		_ = tw.Flush()
	}
}

func printArea(w io.Writer, results []analysis.AreaResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "nenhum voto dentro da área")

		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Candidate, r.Office, textutils.FormatInt(r.Votes))
	}

	_ = tw.Flush()
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, compareCmd, areaCmd} {
		c.Flags().BoolVar(&outputJSON, "json", false, "print the full result as JSON")
		rootCmd.AddCommand(c)
	}
}
