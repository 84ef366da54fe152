// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/urnamapa/urnamapa/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Inicia a API HTTP",
	Long: `Inicia a API que lista e recebe boletins, e serve os mapas, rankings,
comparações e consultas por área de cada arquivo enviado.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		return server.NewServer(e.service, cfg.Data.UploadsDir).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().String("uploads", "", "directory holding the uploaded files")

	if err := v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}

	if err := v.BindPFlag("data.uploads_dir", serveCmd.Flags().Lookup("uploads")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd)
}
