package main

import (
	"os"

	"github.com/MudgalLabs/arthveda-sub000/cmd/arthveda/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
