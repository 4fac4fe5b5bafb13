package main

import (
	"os"

	"github.com/git-pkgs/pup/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
