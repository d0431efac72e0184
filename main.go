package main

import (
	"os"

	"github.com/carryon-app/carryon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
