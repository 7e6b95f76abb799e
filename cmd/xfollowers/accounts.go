package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xfollowers/pkg/auth"
	"xfollowers/pkg/config"
	"xfollowers/pkg/logger"
	"xfollowers/pkg/ui"
	"xfollowers/pkg/xapi"
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the authenticated account pool",
	Long: `Manage the X/Twitter accounts used to issue follower fetch requests.

Each account is a cookie pair extracted from a logged-in browser session:
the auth_token and ct0 cookies. Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (XFOLLOWERS_HANDLE / XFOLLOWERS_AUTH_TOKEN / XFOLLOWERS_CT0)

Never share your credentials or config files!`,
}

// addCmd registers accounts from a credentials file
var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Register accounts from a credentials file",
	Long: `Register accounts from a plain-text credentials file.

The file holds one record per line in the form:
  handle:auth_token:ct0

A malformed line (wrong field count or an empty field) is reported and
skipped; the remaining lines are still processed. Each well-formed record
is stored and then logged in through the scraping library, which persists
the session in its own session store.`,
	Example: `  # Register accounts from ./accounts.txt (the default)
  xfollowers accounts add

  # Register accounts from a specific file
  xfollowers accounts add /path/to/credentials.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runAdd(cmd, args)
		return nil
	},
}

// loginCmd stores a single account interactively
var loginCmd = &cobra.Command{
	Use:   "login [handle]",
	Short: "Store one account's cookies interactively",
	Long: `Store a single account's credentials, prompting for the cookie values.

To get the values:
1. Log into x.com in your browser
2. Open Developer Tools (F12) > Application/Storage > Cookies
3. Copy the auth_token and ct0 cookie values`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// listAccountsCmd lists stored accounts
var listAccountsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Long:  `List all stored accounts with masked token values.`,
	Run:   runListAccounts,
}

// removeCmd removes a stored account
var removeCmd = &cobra.Command{
	Use:   "remove <handle>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	Run:   runRemoveAccount,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(addCmd)
	accountsCmd.AddCommand(loginCmd)
	accountsCmd.AddCommand(listAccountsCmd)
	accountsCmd.AddCommand(removeCmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	path := cfg.Twitter.AccountsFile
	if len(args) > 0 {
		path = args[0]
	}

	lines, err := auth.ParseCredentialsFile(path)
	if err != nil {
		logger.WithError(err).Error("cannot read credentials file")
		ui.PrintError("Cannot read credentials file", err.Error())
		os.Exit(1)
	}
	if len(lines) == 0 {
		ui.PrintError("Credentials file is empty", path)
		os.Exit(1)
	}

	// Per-line outcomes; one bad line never aborts the batch
	var accounts []*auth.Account
	for _, line := range lines {
		if line.Err != nil {
			logger.WithError(line.Err).WithField("line", line.LineNo).Warn("skipping malformed credential line")
			ui.PrintWarning(fmt.Sprintf("Line %d skipped (malformed)", line.LineNo), line.Err.Error())
			continue
		}
		accounts = append(accounts, line.Account)
	}

	if len(accounts) == 0 {
		ui.PrintError("No well-formed credential lines found", path)
		os.Exit(1)
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	for _, account := range accounts {
		if err := manager.Store(account); err != nil {
			logger.WithError(err).WithField("handle", account.Handle).Warn("failed to store credentials")
		}
	}

	// Register with the library: logins happen at client construction and
	// sessions land in the library's own store.
	ui.PrintHighlight(fmt.Sprintf("Registering %d account(s) with the session pool...", len(accounts)))
	client, err := xapi.New(xapi.Config{
		Accounts:   accounts,
		SessionDir: cfg.Twitter.SessionDir,
	})
	if err != nil {
		logger.WithError(err).Error("failed to initialize twitter client")
		for _, account := range accounts {
			ui.PrintError("Rejected: @" + account.Handle)
		}
		return // attempts were made; exit 0 (best effort)
	}

	registered := 0
	for _, account := range accounts {
		if client.Active(account.Handle) {
			registered++
			ui.PrintSuccess("Registered: @" + account.Handle)
		} else {
			logger.WithField("handle", account.Handle).Warn("account rejected by library")
			ui.PrintError("Rejected: @" + account.Handle)
		}
	}

	ui.PrintInfo("Accounts registered", fmt.Sprintf("%d/%d", registered, len(accounts)))
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	var handle string
	if len(args) > 0 {
		handle = args[0]
	} else {
		fmt.Print("Account handle (without @): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read handle", err.Error())
			os.Exit(1)
		}
		handle = strings.TrimSpace(input)
	}
	if handle == "" {
		ui.PrintError("Handle is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(handle); existing != nil {
		fmt.Printf("Account '%s' already exists. Update credentials? (y/N): ", handle)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("Enter the cookie values (input is hidden):")

	fmt.Print("auth_token cookie value: ")
	authToken, err := readSecret()
	if err != nil {
		ui.PrintError("Failed to read auth token", err.Error())
		os.Exit(1)
	}

	fmt.Print("ct0 cookie value: ")
	ct0, err := readSecret()
	if err != nil {
		ui.PrintError("Failed to read ct0 token", err.Error())
		os.Exit(1)
	}

	account := &auth.Account{
		Handle:    handle,
		AuthToken: strings.TrimSpace(authToken),
		CT0:       strings.TrimSpace(ct0),
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Account saved: @" + handle)

	fmt.Println("\nYour credentials are stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("  - System keychain (primary)")
	}
	fmt.Println("  - Encrypted file (fallback)")

	fmt.Println("\nRegister it with the session pool on the next run, or immediately via:")
	fmt.Println("  xfollowers fetch <target>")
}

func runListAccounts(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'xfollowers accounts add' or 'xfollowers accounts login'")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. @%s\n", i+1, sanitized.Handle)
		fmt.Printf("   auth_token: %s\n", sanitized.AuthToken)
		fmt.Printf("   ct0:        %s\n", sanitized.CT0)
		fmt.Printf("   modified:   %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
}

func runRemoveAccount(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	handle := args[0]
	if err := manager.Delete(handle); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: @" + handle)
}

// readSecret reads a token from stdin without echoing
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(secret), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
