// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/urnamapa/urnamapa/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
