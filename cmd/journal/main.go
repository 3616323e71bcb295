// Command journal runs the trade journal server and CLI.
package main

import (
	"os"

	"trade-journal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
