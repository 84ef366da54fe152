// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/urnamapa/urnamapa/geocache"
	"github.com/urnamapa/urnamapa/spatial"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspeciona e popula o cache de geocodificação",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista os endereços do cache com suas coordenadas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cache, err := geocache.Open(cfg.Cache.Backend, cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()

		entries, err := cache.Entries()
		if err != nil {
			return err
		}

		printEntries(cmd.OutOrStdout(), entries)

		return nil
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <geocode_cache.json>",
	Short: "Importa um cache JSON para o backend configurado",
	Long: `Lê um arquivo {"endereço": [lat, lng], ...}, normaliza os endereços e grava
as entradas no cache configurado. Permite migrar um cache JSON para DuckDB ou
SQLite.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return eris.Wrapf(err, "import source")
		}

		src := geocache.OpenJSON(args[0])

		entries, err := src.Entries()
		if err != nil {
			return err
		}

		dst, err := geocache.Open(cfg.Cache.Backend, cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer dst.Close()

		changed, err := dst.PutAll(entries)
		if err != nil {
			return err
		}

		zap.L().Info("cache imported",
			zap.String("from", args[0]),
			zap.String("backend", cfg.Cache.Backend),
			zap.String("path", cfg.Cache.Path),
			zap.Int("read", len(entries)),
			zap.Int("changed", changed),
			zap.Int("total", dst.Len()),
		)

		return nil
	},
}

func printEntries(w io.Writer, entries map[string]spatial.Point) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, entries[k])
	}
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheImportCmd)
	rootCmd.AddCommand(cacheCmd)
}
