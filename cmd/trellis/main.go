package main

import (
	"os"

	"github.com/edforge/trellis/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
