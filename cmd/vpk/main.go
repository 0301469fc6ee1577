// Command vpk reads Valve VPK archives.
package main

import (
	"os"

	"github.com/pg9182/vpk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
