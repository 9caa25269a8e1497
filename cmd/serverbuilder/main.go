// Package main provides the entry point for the Server Builder CLI.
package main

import (
	"fmt"
	"os"

	"github.com/flamemarketdc-cyber/SErver-Builder/cmd/serverbuilder/commands"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
)

func main() {
	err := commands.Execute()
	logging.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
