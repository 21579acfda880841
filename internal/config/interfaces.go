package config

import "context"

// SecretProvider resolves secret references (SSM parameter paths or
// equivalent identifiers) to plaintext values in one batch.
type SecretProvider interface {
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}

// NewSecretProvider picks the provider for the deployment: SSM when an AWS
// region is configured, otherwise environment variables.
func NewSecretProvider(region, endpointURL string) SecretProvider {
	if region == "" {
		return NewEnvVarProvider()
	}
	return NewSSMProvider(region, endpointURL)
}
