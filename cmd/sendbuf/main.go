// Command sendbuf runs a batching buffer behind an HTTP API and produces items for it.
package main

import (
	"os"

	"github.com/teenjuna/sendbuf/cmd/sendbuf/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
