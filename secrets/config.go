package secrets

// SecretsManagerConfig selects and configures a secrets manager backend.
type SecretsManagerConfig struct {
	Type SecretsManagerType `json:"type"`
	Path string             `json:"path"` // Base directory of the local secrets manager
}
