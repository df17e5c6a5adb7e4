package main

import (
	"os"

	"github.com/bdlandchain/landchain-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
