package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xfollowers/pkg/auth"
	"xfollowers/pkg/config"
	"xfollowers/pkg/exporter"
	"xfollowers/pkg/logger"
	"xfollowers/pkg/storage"
	"xfollowers/pkg/ui"
	"xfollowers/pkg/xapi"
)

var (
	// Fetch command flags
	fetchLimit   int
	useTimestamp bool
	useProxy     bool
	outputDir    string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch TARGET...",
	Short: "Export the followers of one or more target accounts",
	Long: `Fetch the followers of each TARGET handle and export them.

For each target xfollowers writes:
  followers_<handle>.json   detailed export, one record per follower
  followers_<handle>.csv    the same records flattened to rows

With more than one target it also writes followers_summary.csv with one
row per target (handle, fetched count, status, output file).

Targets are processed one at a time: the authenticated account pool is a
shared rate-limited resource. A failing target never stops the batch; its
summary row is marked "failed" (or "partial" when the stream broke after
some records were gathered).`,
	Example: `  # 100 followers (default limit) of a single account
  xfollowers fetch jack

  # All followers, timestamped filenames so prior captures survive
  xfollowers fetch jack --limit 0 --timestamp

  # Several targets, 1000 followers each, through the configured proxy
  xfollowers fetch jack finkd gvanrossum -l 1000 -p`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runFetch(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().IntVarP(&fetchLimit, "limit", "l", 100, "followers to fetch per target (0 = unlimited)")
	fetchCmd.Flags().BoolVarP(&useTimestamp, "timestamp", "t", false, "add a capture timestamp to output filenames")
	fetchCmd.Flags().BoolVarP(&useProxy, "proxy", "p", false, "use the proxy address from configuration")
	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for export files (default: current directory)")
}

func runFetch(cmd *cobra.Command, args []string) {
	targets := make([]string, 0, len(args))
	for _, arg := range args {
		if handle := strings.TrimSpace(strings.TrimPrefix(arg, "@")); handle != "" {
			targets = append(targets, handle)
		}
	}
	if len(targets) == 0 {
		ui.PrintError("No target handles given")
		os.Exit(1)
	}

	// Build flags map from command line
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("limit") {
		flags["limit"] = fetchLimit
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Shared configuration failure aborts before any fetching
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("xfollowers starting")

	proxy := ""
	if useProxy {
		if cfg.Twitter.Proxy == "" {
			ui.PrintError("Proxy flag set but no proxy address configured",
				"set twitter.proxy in the config file or XFOLLOWERS_PROXY")
			os.Exit(1)
		}
		proxy = cfg.Twitter.Proxy
		ui.PrintInfo("Proxy", proxyDisplay(proxy))
	}

	accounts := loadAccounts(cfg)
	if len(accounts) == 0 {
		logger.Error("no accounts available")
		ui.PrintError("No accounts available", "run 'xfollowers accounts add' first")
		os.Exit(1)
	}
	logger.WithField("accounts", len(accounts)).Info("account pool loaded")

	client, err := xapi.New(xapi.Config{
		Accounts:   accounts,
		Proxy:      proxy,
		SessionDir: cfg.Twitter.SessionDir,
	})
	if err != nil {
		logger.WithError(err).Error("failed to initialize twitter client")
		ui.PrintError("Failed to initialize twitter client", err.Error())
		os.Exit(1)
	}
	if client.ActiveCount() == 0 {
		ui.PrintError("No active accounts in the pool", "all logins failed, re-add fresh cookies")
		os.Exit(1)
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Targets", strings.Join(targets, ", "))
	if cfg.Fetch.Limit == 0 {
		ui.PrintInfo("Limit", "unlimited")
	} else {
		ui.PrintInfo("Limit", fmt.Sprintf("%d", cfg.Fetch.Limit))
	}

	exp := exporter.New(client, store, exporter.Options{
		Limit:       cfg.Fetch.Limit,
		Timestamp:   useTimestamp,
		TargetDelay: cfg.Fetch.TargetDelay,
	})

	summaries, err := exp.Run(context.Background(), targets)
	if err != nil {
		// Summary write failure; per-target exports already on disk
		ui.PrintError("Failed to write summary", err.Error())
	}

	for _, summary := range summaries {
		line := fmt.Sprintf("@%s: %d followers fetched (%s)", summary.Target, summary.Fetched, summary.Status)
		if summary.Status == "success" {
			ui.PrintSuccess(line)
		} else {
			ui.PrintWarning(line)
		}
	}

	logger.Info("batch complete")
}

// loadAccounts pulls the account pool from the credential stores, falling
// back to the credentials file for setups that never ran `accounts add`.
func loadAccounts(cfg *config.Config) []*auth.Account {
	manager, err := auth.NewManager()
	if err == nil {
		if accounts, err := manager.List(); err == nil && len(accounts) > 0 {
			return accounts
		}
	}

	lines, err := auth.ParseCredentialsFile(cfg.Twitter.AccountsFile)
	if err != nil {
		return nil
	}
	var accounts []*auth.Account
	for _, line := range lines {
		if line.Err == nil {
			accounts = append(accounts, line.Account)
		}
	}
	return accounts
}

// proxyDisplay hides credentials embedded in a proxy address
func proxyDisplay(proxy string) string {
	if at := strings.LastIndex(proxy, "@"); at >= 0 {
		return proxy[at+1:]
	}
	return proxy
}
