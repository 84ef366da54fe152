// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/urnamapa/urnamapa/geocode"
	"github.com/urnamapa/urnamapa/utils/textutils"
	"github.com/urnamapa/urnamapa/votes"
	"go.uber.org/zap"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <boletim.csv>",
	Short: "Geocodifica e guarda no cache os locais de votação de um boletim",
	Long: `Resolve todos os endereços de locais de votação do arquivo e os grava no
cache, de forma que as visualizações posteriores não chamem o provedor.
Imprime em stdout os endereços que não puderam ser resolvidos.`,
	Args: cobra.ExactArgs(1),
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

		// first seen text of every normalized address, for the report
		texts := make(map[string]string)
		addresses := make([]string, 0, len(records))

		for _, r := range records {
			a := e.service.GeocodeAddress(r.Address)
			addresses = append(addresses, a)

			k := textutils.NormalizeAddress(a)
			if _, ok := texts[k]; !ok {
				texts[k] = a
			}
		}

		var bar *progressbar.ProgressBar

		if isatty.IsTerminal(os.Stderr.Fd()) {
			e.service.Pipeline.Progress = func(done, total int) {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("Geocoding "+args[0]),
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}

				_ = bar.Set(done)
			}
		}

		results, stats := e.service.Pipeline.Resolve(cmd.Context(), addresses)

		if bar != nil {
			_ = bar.Finish()
		}

		failed := make([]string, 0, stats.Failed)

		for k, r := range results {
			if r.Err != nil {
				failed = append(failed, k)
			}
		}

		sort.Strings(failed)

		for _, k := range failed {
			fmt.Printf("%s\t%s\t%q\n", texts[k], geocode.TypeOf(results[k].Err), results[k].Err.Error())
		}

		zap.L().Info("geocoding finished",
			zap.String("file", args[0]),
			zap.Int("rows", stats.Items),
			zap.Int("addresses", stats.Distinct),
			zap.Int("cache_hits", stats.CacheHits),
			zap.Int("provider_calls", stats.ProviderCalls),
			zap.Int("failed", stats.Failed),
			zap.Int("cached", e.cache.Len()),
		)

		return cmd.Context().Err()
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
