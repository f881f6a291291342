package main

import (
	"os"

	"github.com/Honey-Rajput/Stocks/cmd/scanner/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
