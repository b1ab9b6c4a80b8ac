package main

import (
	"os"

	"github.com/LENAX/med-pipeline/pkg/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
