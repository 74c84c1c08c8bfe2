package main

import (
	"github.com/joho/godotenv"

	"github.com/uvilor/dbm-merge/cmd"
)

func main() {
	// Load .env if present; a missing file is fine.
	_ = godotenv.Load()

	cmd.Execute()
}
