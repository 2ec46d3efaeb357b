package main

import (
	"os"

	"github.com/gradefresh-dev/gradefresh/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
