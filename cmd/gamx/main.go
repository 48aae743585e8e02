package main

import (
	"os"

	"github.com/okian/gamx/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
