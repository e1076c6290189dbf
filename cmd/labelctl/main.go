// Command labelctl administers the label store from the command line: seeding sample data,
// importing product files, rendering templates and printing PDFs without the HTTP API.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
