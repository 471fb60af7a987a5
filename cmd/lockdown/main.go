package main

import (
	"os"

	"github.com/sfwani/lockdown/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
