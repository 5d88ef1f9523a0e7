// profrag - peptidoform parsing, fragmentation, and spectrum annotation tool
package main

import (
	"os"

	"github.com/mjhoffman/profrag/cmd/profrag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
