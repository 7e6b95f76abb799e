package auth

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "xfollowers/pkg/errors"
)

// Account represents one X/Twitter account used to issue fetch requests.
// AuthToken and CT0 are the auth_token and ct0 cookie values.
type Account struct {
	Handle       string    `json:"handle"`
	AuthToken    string    `json:"auth_token"`
	CT0          string    `json:"ct0"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a specific handle
	Retrieve(handle string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a specific handle
	Delete(handle string) error

	// Exists checks if credentials exist for a handle
	Exists(handle string) bool
}

// ParseCredentialLine parses one `handle:auth_token:ct0` record.
// Wrong field count or any empty field fails that single record.
func ParseCredentialLine(line string) (*Account, error) {
	parts := strings.Split(strings.TrimSpace(line), ":")
	if len(parts) != 3 {
		return nil, apperrors.New(apperrors.ErrorTypeCredentialParse, line,
			fmt.Sprintf("expected 3 colon-delimited fields, got %d", len(parts)))
	}
	for _, part := range parts {
		if part == "" {
			return nil, apperrors.New(apperrors.ErrorTypeCredentialParse, line,
				"empty field in credential record")
		}
	}
	return &Account{
		Handle:       parts[0],
		AuthToken:    parts[1],
		CT0:          parts[2],
		LastModified: time.Now(),
	}, nil
}

// ParsedLine is the outcome of parsing one non-empty credential file line.
type ParsedLine struct {
	LineNo  int
	Raw     string
	Account *Account
	Err     error
}

// ParseCredentialsFile parses a credential file, one record per non-empty
// line, in file order. A malformed line yields a ParsedLine with Err set;
// parsing continues with the remaining lines.
func ParseCredentialsFile(path string) ([]ParsedLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer f.Close()

	var lines []ParsedLine
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		account, parseErr := ParseCredentialLine(raw)
		lines = append(lines, ParsedLine{
			LineNo:  lineNo,
			Raw:     raw,
			Account: account,
			Err:     parseErr,
		})
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("failed to read credentials file: %w", err)
	}

	return lines, nil
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage backends
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a credential manager backed by the given stores.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first available store
func (m *Manager) Store(account *Account) error {
	if account.Handle == "" {
		return errors.New("handle is required")
	}
	if account.AuthToken == "" {
		return errors.New("auth token is required")
	}
	if account.CT0 == "" {
		return errors.New("ct0 token is required")
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(handle string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(handle); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("credentials not found for account: %s", handle)
}

// List returns all stored accounts from all stores
func (m *Manager) List() ([]*Account, error) {
	accountMap := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			// Use the most recently modified version
			if existing, ok := accountMap[account.Handle]; !ok || account.LastModified.After(existing.LastModified) {
				accountMap[account.Handle] = account
			}
		}
	}

	var result []*Account
	for _, account := range accountMap {
		result = append(result, account)
	}

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(handle string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(handle); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for account: %s", handle)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		configDir = filepath.Join(xdgConfig, "xfollowers")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "xfollowers")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount creates a copy of the account with sensitive data masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Handle:       account.Handle,
		AuthToken:    maskString(account.AuthToken),
		CT0:          maskString(account.CT0),
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
