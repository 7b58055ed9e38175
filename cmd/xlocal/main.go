package main

import (
	"os"

	"github.com/joho/godotenv"

	"xlocal/internal/cli"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	os.Exit(cli.Execute())
}
