package main

import (
	"fmt"
	"os"

	"github.com/terraincognita07/nestling/internal/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nestling: %v\n", err)
		os.Exit(1)
	}
}
