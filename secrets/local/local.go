package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Ethernal-Tech/iroha-explorer/common"
	"github.com/Ethernal-Tech/iroha-explorer/secrets"
)

// LocalSecretsManager is a SecretsManager that
// stores secrets locally on disk
type LocalSecretsManager struct {
	// Path to the base working directory
	path string

	// Map of known secrets and their paths
	secretPathMap map[string]string

	// Mux for the secretPathMap
	secretPathMapLock sync.RWMutex
}

var _ secrets.SecretsManager = (*LocalSecretsManager)(nil)

// SecretsManagerFactory implements the factory method
func SecretsManagerFactory(
	config *secrets.SecretsManagerConfig,
) (secrets.SecretsManager, error) {
	if config.Path == "" {
		return nil, errors.New("no path specified for local secrets manager")
	}

	localManager := &LocalSecretsManager{
		secretPathMap: make(map[string]string),
		path:          config.Path,
	}

	if err := localManager.Setup(); err != nil {
		return nil, err
	}

	return localManager, nil
}

// Setup creates the secret directories
func (l *LocalSecretsManager) Setup() error {
	l.secretPathMapLock.Lock()
	defer l.secretPathMapLock.Unlock()

	if err := common.SetupDataDir(l.path, []string{secrets.IrohaFolderLocal}, 0750); err != nil {
		return err
	}

	// baseDir/iroha/account.key
	l.secretPathMap[secrets.IrohaAccountKey] = filepath.Join(
		l.path,
		secrets.IrohaFolderLocal,
		secrets.IrohaAccountKeyLocal,
	)

	return nil
}

// GetSecret gets the local SecretsManager's secret from disk
func (l *LocalSecretsManager) GetSecret(name string) ([]byte, error) {
	secretPath, err := l.secretPath(name)
	if err != nil {
		return nil, err
	}

	secret, err := os.ReadFile(secretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read secret from disk (%s), %w", secretPath, err)
	}

	return secret, nil
}

// SetSecret saves the local SecretsManager's secret to disk
func (l *LocalSecretsManager) SetSecret(name string, value []byte) error {
	secretPath, err := l.secretPath(name)
	if err != nil {
		return err
	}

	if common.FileExists(secretPath) {
		return fmt.Errorf("%s already initialized", secretPath)
	}

	if err := common.SaveFileSafe(secretPath, value, 0440); err != nil {
		return fmt.Errorf("unable to write secret to disk (%s), %w", secretPath, err)
	}

	return nil
}

// HasSecret checks if the secret is present on disk
func (l *LocalSecretsManager) HasSecret(name string) bool {
	_, err := l.GetSecret(name)

	return err == nil
}

// RemoveSecret removes the local SecretsManager's secret from disk
func (l *LocalSecretsManager) RemoveSecret(name string) error {
	secretPath, err := l.secretPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(secretPath); err != nil {
		return fmt.Errorf("unable to remove secret, %w", err)
	}

	return nil
}

func (l *LocalSecretsManager) secretPath(name string) (string, error) {
	l.secretPathMapLock.RLock()
	defer l.secretPathMapLock.RUnlock()

	secretPath, ok := l.secretPathMap[name]
	if !ok {
		return "", secrets.ErrSecretNotFound
	}

	return secretPath, nil
}
