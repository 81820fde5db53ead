package main

import (
	"os"

	"github.com/scrubd-io/scrubd/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
