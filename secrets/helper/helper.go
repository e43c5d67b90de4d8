package helper

import (
	"fmt"

	"github.com/Ethernal-Tech/iroha-explorer/secrets"
	"github.com/Ethernal-Tech/iroha-explorer/secrets/local"
)

// SetupLocalSecretsManager is a helper method for boilerplate local secrets manager setup
func SetupLocalSecretsManager(dataDir string) (secrets.SecretsManager, error) {
	return local.SecretsManagerFactory(&secrets.SecretsManagerConfig{
		Type: secrets.Local,
		Path: dataDir,
	})
}

// InitSecretsManager returns the secrets manager described by config
func InitSecretsManager(config *secrets.SecretsManagerConfig) (secrets.SecretsManager, error) {
	switch config.Type {
	case secrets.Local, "":
		return SetupLocalSecretsManager(config.Path)
	default:
		return nil, fmt.Errorf("unsupported secrets manager: %s", config.Type)
	}
}
