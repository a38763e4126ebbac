package artifactsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/artifacts-client/internal/client"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// New creates a new artifacts client.
func New(ctx context.Context, config *artifacts.Config) (artifacts.Client, error) {
	if config == nil {
		return nil, artifacts.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, artifacts.ErrEndpointRequired
	}

	normalized := *config
	normalized.Endpoint = NormalizeEndpoint(config.Endpoint)

	client, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return client, nil
}

// NormalizeEndpoint trims a trailing slash and defaults the scheme to https.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithEndpoint creates a client without authentication.
func NewWithEndpoint(ctx context.Context, endpoint string) (artifacts.Client, error) {
	return New(ctx, &artifacts.Config{
		Endpoint: endpoint,
	})
}

// NewWithToken creates a client with a static bearer token.
func NewWithToken(ctx context.Context, endpoint, token string) (artifacts.Client, error) {
	return New(ctx, &artifacts.Config{
		Endpoint:    endpoint,
		AccessToken: token,
	})
}

// NewWithTokenProvider creates a client that asks provider for a token on
// every request.
func NewWithTokenProvider(ctx context.Context, endpoint string, provider artifacts.TokenProvider) (artifacts.Client, error) {
	return New(ctx, &artifacts.Config{
		Endpoint:      endpoint,
		TokenProvider: provider,
	})
}
