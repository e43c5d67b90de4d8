package secrets

import "errors"

// Secret names understood by every secrets manager.
const (
	// IrohaAccountKey is the hex encoded ed25519 seed of the account the explorer queries as.
	IrohaAccountKey = "iroha-account-key"
)

// Locations of the secrets of the local secrets manager, relative to its path.
const (
	IrohaFolderLocal     = "iroha"
	IrohaAccountKeyLocal = "account.key"
)

type SecretsManagerType string

const (
	Local SecretsManagerType = "local"
)

var ErrSecretNotFound = errors.New("secret not found")

// SecretsManager stores and retrieves named secrets.
type SecretsManager interface {
	// Setup performs the initial setup of the backend
	Setup() error

	GetSecret(name string) ([]byte, error)

	// SetSecret fails if the secret already exists
	SetSecret(name string, value []byte) error

	HasSecret(name string) bool

	RemoveSecret(name string) error
}
