package main

import (
	"fmt"
	"os"

	"github.com/nikbrunner/pdfshelf/internal/cli"
	"github.com/nikbrunner/pdfshelf/internal/library"
)

func main() {
	app := cli.NewApp()
	if err := cli.Execute(app, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", library.Code(err), err)
		os.Exit(1)
	}
}
