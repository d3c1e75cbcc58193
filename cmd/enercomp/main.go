package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/enercomp/enercomp/cmd/enercomp/commands"
)

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
