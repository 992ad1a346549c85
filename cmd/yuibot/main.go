// Package main is the entry point for the yuibot CLI.
package main

import (
	"os"

	"github.com/yuibot/yuibot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
