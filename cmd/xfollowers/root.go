package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"xfollowers/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xfollowers",
	Short: "Export the followers of X/Twitter accounts to JSON and CSV",
	Long: `xfollowers enumerates the followers of one or more X/Twitter accounts
through an authenticated account pool and exports the results.

For each target it writes a detailed JSON export and a tabular CSV export;
batches of more than one target additionally get a summary CSV.

Accounts are registered from a credentials file (handle:auth_token:ct0,
one per line) with 'xfollowers accounts add'. Rate limits and pagination
are handled by the scraping library.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.SetArgs(routeDefaultCommand(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .xfollowers.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`xfollowers {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// routeDefaultCommand makes fetch the default command: a leading argument
// that is neither a flag nor a known subcommand is treated as a target
// handle, and the whole argument list (flags included) is handed to fetch.
func routeDefaultCommand(args []string) []string {
	if len(args) == 0 {
		return args
	}
	if strings.HasPrefix(args[0], "-") || isKnownCommand(args[0]) {
		return args
	}
	return append([]string{"fetch"}, args...)
}

func isKnownCommand(arg string) bool {
	if arg == "help" {
		return true
	}
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
