package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/tidwall/gjson"
)

// SecretsConfig points at an AWS Secrets Manager secret holding API keys as
// a JSON object, e.g. {"OPENAI_API_KEY": "...", "RESEND_API_KEY": "..."}.
type SecretsConfig struct {
	AWSSecretID string `mapstructure:"aws_secret_id"`
	Region      string `mapstructure:"region"`
}

// SecretsAPI is the Secrets Manager call used to resolve keys.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsClient builds a Secrets Manager client from the default credential chain.
func NewSecretsClient(ctx context.Context, region string) (SecretsAPI, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// ResolveSecrets fills API keys still empty after file and environment
// loading. Keys already set are left alone.
func (c *Config) ResolveSecrets(ctx context.Context, api SecretsAPI) error {
	if c.Secrets.AWSSecretID == "" {
		return nil
	}
	if api == nil {
		return errors.New("secrets client is nil")
	}
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(c.Secrets.AWSSecretID)})
	if err != nil {
		return fmt.Errorf("read secret %s: %w", c.Secrets.AWSSecretID, err)
	}
	raw := aws.ToString(out.SecretString)
	if !gjson.Valid(raw) {
		return fmt.Errorf("secret %s is not a JSON object", c.Secrets.AWSSecretID)
	}
	if c.LLM != nil && c.LLM.APIKey == "" {
		c.LLM.APIKey = gjson.Get(raw, "OPENAI_API_KEY").String()
	}
	if c.Email.APIKey == "" {
		c.Email.APIKey = gjson.Get(raw, "RESEND_API_KEY").String()
	}
	return nil
}
