// Package param resolves deployment configuration, such as the Nova Canvas
// model ID, from SSM Parameter Store with an env/flag fallback.
package param

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// Fetcher loads a single configuration value by path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// ParameterStoreFetcher reads parameters from SSM Parameter Store.
type ParameterStoreFetcher struct {
	client *ssm.Client
}

// NewParameterStoreFetcher wraps an SSM client.
func NewParameterStoreFetcher(client *ssm.Client) *ParameterStoreFetcher {
	return &ParameterStoreFetcher{client: client}
}

// Fetch returns the decrypted value of the parameter at path.
func (f *ParameterStoreFetcher) Fetch(ctx context.Context, path string) (string, error) {
	log.Debug().Str("path", path).Msg("Fetching SSM parameter")

	out, err := f.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", path, err)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// ResolveModelID returns the model ID from SSM when paramPath is set,
// otherwise the provided fallback. A fetch failure falls back too, with a
// warning, so a missing parameter never blocks local use.
func ResolveModelID(ctx context.Context, fetcher Fetcher, paramPath, fallback string) string {
	if paramPath == "" {
		return fallback
	}
	value, err := fetcher.Fetch(ctx, paramPath)
	if err != nil {
		log.Warn().Err(err).Str("path", paramPath).Msg("SSM model-id lookup failed, using fallback")
		return fallback
	}
	if value == "" {
		return fallback
	}
	log.Info().Str("path", paramPath).Str("model_id", value).Msg("Model ID resolved from SSM")
	return value
}
