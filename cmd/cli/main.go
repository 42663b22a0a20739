package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/polluterofminds/parallax-server/cmd/cli/casecmd"
	"github.com/polluterofminds/parallax-server/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra convention
	Use:           "parallax-cli",
	Long:          `Command line utilities for running parallax cases`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.NewLogger(os.Stderr, slog.LevelInfo, false)
	casecmd.New(logger, nil).Register(rootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
