package main

import (
	"context"
	"os"

	"github.com/roach88/pldbuild/internal/cli"
)

// main is the entrypoint for pldbuild.
func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
