// Command finanzasctl inspects and exports ledgers straight from the SQLite
// database.
package main

import (
	"fmt"
	"os"

	"finanzas/internal/cli"
	applog "finanzas/internal/log"
)

func main() {
	envErr := cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentCLI)
	if envErr != nil {
		logger.Warn("Failed to load .env file", applog.FieldError, envErr.Error())
	}
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
