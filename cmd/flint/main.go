package main

import (
	"os"

	"github.com/platinummonkey/flint/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
