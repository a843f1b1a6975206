package main

import (
	"os"

	"github.com/alexanderramin/flowdesk/internal/cli"
	"github.com/mattn/go-isatty"
)

func main() {
	app := &cli.App{
		// Detect interactive terminal for the list editor.
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
	os.Exit(cli.Execute(app, os.Args[1:], os.Stderr))
}
