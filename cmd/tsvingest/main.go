package main

import (
	"os"

	"github.com/JonMunkholm/tsvingest/cmd/tsvingest/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
