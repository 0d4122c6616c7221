package main

import (
	"fmt"
	"os"

	"github.com/fakturnik/ksef-client/cmd/ksef-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
