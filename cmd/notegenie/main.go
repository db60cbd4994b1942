package main

import (
	"os"

	"github.com/DukeRupert/notegenie/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
