package main

import (
	"os"

	"github.com/telhawk-systems/stixbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
