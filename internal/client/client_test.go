package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/fivetwenty-io/artifacts-client/internal/client"
	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), nil)
		require.ErrorIs(t, err, artifacts.ErrConfigRequired)
	})

	t.Run("requires endpoint", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &artifacts.Config{})
		require.ErrorIs(t, err, artifacts.ErrEndpointRequired)
	})

	t.Run("creates client with access token", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &artifacts.Config{
			Endpoint:    "https://ws.example.net",
			AccessToken: "test-token",
		})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("creates client with token provider", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &artifacts.Config{
			Endpoint:      "https://ws.example.net",
			TokenProvider: artifacts.StaticToken("provided"),
		})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("creates client without authentication", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &artifacts.Config{Endpoint: "https://ws.example.net"})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("reuses metrics on a shared registry", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()

		for range 2 {
			_, err := New(context.Background(), &artifacts.Config{
				Endpoint:          "https://ws.example.net",
				MetricsRegisterer: registry,
			})
			require.NoError(t, err)
		}
	})
}

func TestClient_RequestHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		config        artifacts.Config
		authorization string
		userAgent     string
		apiVersion    string
	}{
		{
			name:          "defaults",
			config:        artifacts.Config{AccessToken: "test-token"},
			authorization: "Bearer test-token",
			userAgent:     constants.DefaultUserAgent,
			apiVersion:    constants.DefaultAPIVersion,
		},
		{
			name:       "no authentication",
			config:     artifacts.Config{UserAgent: "custom/1.0", APIVersion: "2020-12-01"},
			userAgent:  "custom/1.0",
			apiVersion: "2020-12-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, "/notebooks", request.URL.Path)
				assert.Equal(t, tt.authorization, request.Header.Get("Authorization"))
				assert.Equal(t, tt.userAgent, request.Header.Get("User-Agent"))
				assert.Equal(t, tt.apiVersion, request.URL.Query().Get(constants.APIVersionParam))
				assert.NotEmpty(t, request.Header.Get(constants.HeaderClientRequestID))

				writer.Header().Set("Content-Type", "application/json")
				_, _ = writer.Write([]byte(`{"value":[]}`))
			}))
			defer server.Close()

			config := tt.config
			config.Endpoint = server.URL

			client, err := New(context.Background(), &config)
			require.NoError(t, err)

			page, err := client.Notebooks().ListPage(context.Background())
			require.NoError(t, err)
			assert.Empty(t, page.Items)
		})
	}
}

func TestClient_ResourceAccessors(t *testing.T) {
	t.Parallel()

	client, err := New(context.Background(), &artifacts.Config{Endpoint: "https://ws.example.net"})
	require.NoError(t, err)

	assert.NotNil(t, client.Notebooks())
	assert.Same(t, client.Notebooks(), client.Notebooks())

	scripts, ok := client.Artifacts("sqlScripts").(*ResourceClient[artifacts.Artifact])
	require.True(t, ok)
	assert.Equal(t, "sqlScripts", scripts.Collection())

	_, err = client.ResumeOperation("%%%")
	require.ErrorIs(t, err, artifacts.ErrInvalidResumeToken)
}

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, level+":"+msg)
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, fields map[string]interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg) }

func TestClient_DebugLogging(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer provided", request.Header.Get("Authorization"))
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	for _, debug := range []bool{true, false} {
		logger := &recordingLogger{}

		client, err := New(context.Background(), &artifacts.Config{
			Endpoint:      server.URL,
			TokenProvider: artifacts.StaticToken("provided"),
			Debug:         debug,
			Logger:        logger,
		})
		require.NoError(t, err)

		_, err = client.Notebooks().ListPage(context.Background())
		require.NoError(t, err)

		if debug {
			assert.Contains(t, logger.messages, "debug:HTTP Request")
			assert.Contains(t, logger.messages, "debug:HTTP Response")
		} else {
			assert.NotContains(t, logger.messages, "debug:HTTP Request")
		}
	}
}
