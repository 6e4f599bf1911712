// Command issuerunner runs issue regression test projects and compares
// their results against a baseline.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/NielsdaWheelz/issuerunner/internal/cli/cobra"
	"github.com/NielsdaWheelz/issuerunner/internal/errors"
)

func main() {
	// A .env in the working directory may set ISSUERUNNER_ROOT; absence is fine.
	_ = godotenv.Load()

	err := cobra.Execute(os.Stdout, os.Stderr)
	if err != nil {
		// Use verbose mode if --verbose global flag was set
		opts := errors.PrintOptions{
			Verbose: cobra.GetGlobalOpts().Verbose,
		}
		errors.PrintWithOptions(os.Stderr, err, opts)
		os.Exit(errors.ExitCode(err))
	}
}
