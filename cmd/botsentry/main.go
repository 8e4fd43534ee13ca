package main

import (
	"os"

	"github.com/psantana5/bot-sentry/cmd/botsentry/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
