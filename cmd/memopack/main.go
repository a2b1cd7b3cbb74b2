// Package main provides the memopack command line tool, which builds memo
// import archives from local text and image files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/listenupapp/memopack/internal/locale"
	"github.com/listenupapp/memopack/internal/logger"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	Locale   string `json:"locale" validate:"required,locale"`
	LogLevel string `json:"log-level" validate:"required,loglevel"`

	log *logger.Logger
}

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "memopack",
		Short:         "Package notes and images into a memo import archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validate(opts); err != nil {
				return err
			}
			opts.log = logger.New(logger.Config{
				Writer: cmd.ErrOrStderr(),
				Level:  logger.ParseLevel(opts.LogLevel),
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.Locale, "locale", getEnv("MEMOPACK_LOCALE", "ja"),
		fmt.Sprintf("Language of the category name and messages %v", locale.Supported()))
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newNotesCmd(opts))
	rootCmd.AddCommand(newBulkCmd(opts))
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
