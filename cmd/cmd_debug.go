// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/urnamapa/urnamapa/geocode"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Consulta o provedor de geocodificação diretamente",
	Long: `Lê um endereço por linha e imprime em stdout o endereço seguido das
coordenadas ou do erro do provedor. O cache não é consultado nem atualizado.

$ echo "Rua Benjamin Constant, 1000, Rio Branco, Acre" | urna debug geocode
Rua Benjamin Constant, 1000, Rio Branco, Acre	POINT(-67.810000 -9.974000)
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		g, err := newGeocoder(cmd.Context(), cfg.Geocode)
		if err != nil {
			return err
		}

		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Digite os endereços a consultar, um por linha…")
		}

		return geocodeLines(cmd.Context(), g, input, cmd.OutOrStdout())
	},
}

func geocodeLines(ctx context.Context, g geocode.Geocoder, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		address := strings.TrimSpace(scanner.Text())
		if address == "" {
			continue
		}

		p, err := g.Geocode(ctx, address)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%q\n", address, geocode.TypeOf(err), err.Error())
		} else {
			fmt.Fprintf(w, "%s\t%s\n", address, p)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugGeocodeCmd)
}
