// Command showcase runs the scripted agent replay and the tax chat demo.
package main

import (
	"os"

	"github.com/showcase-dev/showcase/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
