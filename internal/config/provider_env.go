package config

import (
	"context"
	"os"
)

// EnvVarProvider resolves "secret paths" as plain environment variable names.
// It lets a non-local deployment without SSM still use _SSM_PARAM pointers,
// e.g. DATABASE_URL_SSM_PARAM=PRIMARY_DB_DSN.
type EnvVarProvider struct{}

// NewEnvVarProvider creates a new EnvVarProvider.
func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{}
}

// GetParametersBatch returns the keys that are set; missing keys are omitted.
func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			result[key] = val
		}
	}
	return result, nil
}
