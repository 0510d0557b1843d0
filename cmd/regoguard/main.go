package main

import (
	"os"

	"github.com/regoguard/regoguard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
