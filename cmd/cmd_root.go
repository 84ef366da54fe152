// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/urnamapa/urnamapa/config"
	"go.uber.org/zap"
)

var (
	cfg *config.Config

	// flags are bound into v before the config is loaded
	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "urna",
	Short: "mapas e análises dos resultados eleitorais por seção",
	Long: `
urna geocodifica os locais de votação de um boletim de resultados do TSE e
produz mapas de calor, rankings por município, bairro, zona e seção,
comparações entre candidatos e consultas por área.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.LoadWith(v)
		if err != nil {
			return eris.Wrap(err, "load config")
		}

		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

var Version = "dev"

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("provider", "", "geocoding provider (opencage, google)")
	flags.Int("workers", 0, "concurrent geocoding calls")
	flags.String("cache-backend", "", "geocode cache backend (json, duckdb, sqlite)")
	flags.String("cache-path", "", "geocode cache location")
	flags.String("neighborhoods", "", "ZONA;SEÇÃO;BAIRRO reference file")
	flags.Bool("trace-http", false, "dump provider HTTP traffic to stderr")

	for key, flag := range map[string]string{
		"log.level":          "log-level",
		"geocode.provider":   "provider",
		"geocode.workers":    "workers",
		"geocode.trace_http": "trace-http",
		"cache.backend":      "cache-backend",
		"cache.path":         "cache-path",
		"data.neighborhoods": "neighborhoods",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
