package main

import (
	"os"

	"github.com/Dan9191/reasonable-comp/cmd/compcalc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
