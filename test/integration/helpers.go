package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/internal/fakeserver"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifactsclient"
)

// TestConfig holds configuration for live integration tests.
type TestConfig struct {
	Endpoint string
	Token    string
	NATSURL  string
	Verbose  bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		Endpoint: os.Getenv("ARTIFACTS_ENDPOINT"),
		Token:    os.Getenv("ARTIFACTS_TOKEN"),
		NATSURL:  os.Getenv("NATS_URL"),
		Verbose:  os.Getenv("ARTIFACTS_VERBOSE") == "true",
	}
}

// SkipIfMissingEndpoint skips the test when no live workspace is configured.
func (config *TestConfig) SkipIfMissingEndpoint(t *testing.T) {
	t.Helper()

	if config.Endpoint == "" || config.Token == "" {
		t.Skip("ARTIFACTS_ENDPOINT and ARTIFACTS_TOKEN must be set for live tests")
	}
}

// SkipIfMissingNATS skips the test when no NATS server is configured.
func (config *TestConfig) SkipIfMissingNATS(t *testing.T) {
	t.Helper()

	if config.NATSURL == "" {
		t.Skip("NATS_URL must be set for handle store tests")
	}
}

// Environment is a client wired to an in-process fake service.
type Environment struct {
	Client artifacts.Client
	Fake   *fakeserver.Server
	Server *httptest.Server
}

// NewEnvironment starts a fake service and a client pointed at it.
func NewEnvironment(t *testing.T, options fakeserver.Options) *Environment {
	t.Helper()

	return NewEnvironmentWithHandler(t, options, nil)
}

// NewEnvironmentWithHandler is NewEnvironment with a wrapping handler. wrap
// receives the fake service and returns the handler actually served.
func NewEnvironmentWithHandler(t *testing.T, options fakeserver.Options, wrap func(http.Handler) http.Handler) *Environment {
	t.Helper()

	fake := fakeserver.New(options)

	var handler http.Handler = fake
	if wrap != nil {
		handler = wrap(fake)
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := artifactsclient.New(context.Background(), &artifacts.Config{
		Endpoint:     server.URL,
		AccessToken:  "integration-token",
		PollInterval: constants.QuickPollInterval,
	})
	require.NoError(t, err)

	return &Environment{Client: client, Fake: fake, Server: server}
}

// GenerateTestName generates a unique name for test artifacts.
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// TestNotebook builds a minimal valid notebook.
func TestNotebook(name, description string) artifacts.NotebookResource {
	return artifacts.NotebookResource{
		Resource: artifacts.Resource{Name: name},
		Properties: artifacts.Notebook{
			Description:   description,
			NbFormat:      4,
			NbFormatMinor: 2,
			Metadata: artifacts.NotebookMetadata{
				LanguageInfo: &artifacts.NotebookLanguageInfo{Name: "python"},
			},
			Cells: []artifacts.NotebookCell{
				{
					CellType: "code",
					Metadata: map[string]interface{}{},
					Source:   []string{"print('hello')"},
				},
			},
		},
	}
}
