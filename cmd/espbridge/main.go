package main

import (
	"os"

	"github.com/serial-tools/espbridge/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
