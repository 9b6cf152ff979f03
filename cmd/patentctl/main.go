// patentctl is the command line client for the patent analysis API.
package main

import (
	"fmt"
	"os"

	"github.com/derril-tech/ai-patent-explorer/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
