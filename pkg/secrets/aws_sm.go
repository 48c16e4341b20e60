package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrEmptySecret is returned for secrets stored as binary or with no string value.
var ErrEmptySecret = errors.New("secret has no string value")

// AWSSecretsManagerProvider implements Provider using AWS Secrets Manager.
type AWSSecretsManagerProvider struct {
	client *secretsmanager.Client
}

// NewAWSProvider creates a new AWS Secrets Manager provider for the given region.
func NewAWSProvider(ctx context.Context, region string) (*AWSSecretsManagerProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &AWSSecretsManagerProvider{client: secretsmanager.NewFromConfig(cfg)}, nil
}

// GetSecret fetches and decodes a secret stored as a flat JSON object,
// e.g. {"database_url": "postgres://...", "redis_pass": "..."}.
func (p *AWSSecretsManagerProvider) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch secret [%s]: %w", name, err)
	}
	return decodeSecret(name, aws.ToString(out.SecretString))
}

func decodeSecret(name, raw string) (map[string]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("secret [%s]: %w", name, ErrEmptySecret)
	}
	var result map[string]string
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("invalid secret format for [%s]: %w", name, err)
	}
	return result, nil
}
