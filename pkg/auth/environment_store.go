package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and mainly useful for CI and one-off runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(handle string) (*Account, error) {
	authToken := os.Getenv("XFOLLOWERS_AUTH_TOKEN")
	ct0 := os.Getenv("XFOLLOWERS_CT0")

	if authToken == "" || ct0 == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables carry a single identity; the handle comes
	// from XFOLLOWERS_HANDLE or the caller.
	if handle == "" {
		handle = os.Getenv("XFOLLOWERS_HANDLE")
	}
	if handle == "" {
		handle = "default"
	}

	return &Account{
		Handle:       handle,
		AuthToken:    authToken,
		CT0:          ct0,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(handle string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(handle string) bool {
	account, err := e.Retrieve(handle)
	return err == nil && account != nil
}
