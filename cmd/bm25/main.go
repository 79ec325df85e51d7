// Package main provides the entry point for the bm25 CLI.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/cmd/bm25/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
