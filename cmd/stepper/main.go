package main

import (
	"os"

	"github.com/rustyeddy/stepper/cmd/stepper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
