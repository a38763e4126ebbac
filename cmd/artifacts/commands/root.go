package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifactsclient"
)

// Static errors for err113 compliance.
var (
	ErrNoEndpoint        = errors.New("no endpoint configured, use --endpoint or ARTIFACTS_ENDPOINT")
	ErrUnsupportedOutput = errors.New("unsupported output format")
	ErrInvalidHandle     = errors.New("invalid operation handle")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")
	ErrEmptyToken        = errors.New("token must not be empty")
)

// globalFlags lists the persistent flags bound to viper keys of the same name.
var globalFlags = []string{
	"endpoint", "token", "api-version", "output", "verbose",
	"timeout", "retry-max", "poll-interval",
	"handle-store", "nats-url", "nats-bucket",
}

// NewRootCommand creates the artifacts command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Workspace artifacts CLI",
		Long: `A command-line interface for workspace artifact collections.

Notebooks can be listed, read, written, renamed and deleted. Long-running
writes can be left running and resumed later from a stored handle.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.artifacts/config.yml)")
	flags.StringP("endpoint", "e", "", "workspace endpoint URL")
	flags.StringP("token", "t", "", "bearer token")
	flags.String("api-version", constants.DefaultAPIVersion, "service API version")
	flags.StringP("output", "o", "", "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Duration("timeout", constants.DefaultHTTPTimeout, "per-request timeout")
	flags.Int("retry-max", 0, "transport retries for 5xx, 429 and connection errors")
	flags.Duration("poll-interval", constants.DefaultPollInterval, "operation poll interval")
	flags.String("handle-store", string(artifacts.HandleStoreMemory), "operation handle store (memory, nats)")
	flags.String("nats-url", "", "NATS server URL for the nats handle store")
	flags.String("nats-bucket", constants.DefaultHandleBucket, "NATS key-value bucket for operation handles")

	for _, name := range globalFlags {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewNotebooksCommand())
	rootCmd.AddCommand(NewOperationsCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewGetCommand())
	rootCmd.AddCommand(NewServeCommand())

	return rootCmd
}

// CreateClient builds a client from the effective configuration.
func CreateClient(cmd *cobra.Command) (artifacts.Client, error) {
	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	verbose := viper.GetBool("verbose")

	config := &artifacts.Config{
		Endpoint:     endpoint,
		APIVersion:   viper.GetString("api-version"),
		AccessToken:  viper.GetString("token"),
		HTTPTimeout:  viper.GetDuration("timeout"),
		RetryMax:     viper.GetInt("retry-max"),
		PollInterval: viper.GetDuration("poll-interval"),
		Debug:        verbose,
		Logger:       NewLogger(cmd.ErrOrStderr(), verbose),
	}

	if config.RetryMax > 0 {
		config.RetryWaitMin = constants.DefaultRetryWaitMin
		config.RetryWaitMax = constants.DefaultRetryWaitMax
	}

	client, err := artifactsclient.New(cmd.Context(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}
