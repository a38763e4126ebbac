package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
)

// Config represents the persisted CLI configuration.
type Config struct {
	Endpoint    string `json:"endpoint,omitempty"     yaml:"endpoint,omitempty"`
	Token       string `json:"token,omitempty"        yaml:"token,omitempty"`
	APIVersion  string `json:"api_version,omitempty"  yaml:"api-version,omitempty"`
	Output      string `json:"output,omitempty"       yaml:"output,omitempty"`
	HandleStore string `json:"handle_store,omitempty" yaml:"handle-store,omitempty"`
	NATSURL     string `json:"nats_url,omitempty"     yaml:"nats-url,omitempty"`
	NATSBucket  string `json:"nats_bucket,omitempty"  yaml:"nats-bucket,omitempty"`
}

// settableKeys maps config set keys to the fields they update.
var settableKeys = map[string]func(*Config, string){
	"endpoint":     func(c *Config, v string) { c.Endpoint = v },
	"api-version":  func(c *Config, v string) { c.APIVersion = v },
	"output":       func(c *Config, v string) { c.Output = v },
	"handle-store": func(c *Config, v string) { c.HandleStore = v },
	"nats-url":     func(c *Config, v string) { c.NATSURL = v },
	"nats-bucket":  func(c *Config, v string) { c.NATSBucket = v },
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and update the artifacts CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigSetTokenCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration after flags, environment and config file are merged. The token is masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Token != "" {
				config.Token = constants.MaskedSecret
			}

			handled, err := renderStructured(cmd.OutOrStdout(), outputFormat(), config)
			if handled {
				return err
			}

			rows := [][]string{
				{"Endpoint", valueOrNA(config.Endpoint)},
				{"Token", valueOrNA(config.Token)},
				{"API Version", valueOrNA(config.APIVersion)},
				{"Output", valueOrNA(config.Output)},
				{"Handle Store", valueOrNA(config.HandleStore)},
				{"NATS URL", valueOrNA(config.NATSURL)},
				{"NATS Bucket", valueOrNA(config.NATSBucket)},
			}

			if file := viper.ConfigFileUsed(); file != "" {
				rows = append(rows, []string{"Config File", file})
			}

			return renderTable(cmd.OutOrStdout(), []string{"Property", "Value"}, rows)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Persist a configuration value. Keys: endpoint, api-version, output, handle-store, nats-url, nats-bucket",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			set, ok := settableKeys[key]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
			}

			config := loadPersistedConfig()
			set(config, value)

			err := saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", key, value)

			return nil
		},
	}
}

func newConfigSetTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token",
		Short: "Store a bearer token",
		Long:  "Prompt for a bearer token and store it in the config file. The token is read without echo on terminals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(cmd)
			if err != nil {
				return err
			}

			config := loadPersistedConfig()
			config.Token = token

			err = saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token stored")

			return nil
		},
	}
}

func readToken(cmd *cobra.Command) (string, error) {
	var token string

	if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Token: ")

		secretBytes, err := term.ReadPassword(int(file.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		_, _ = fmt.Fprintln(cmd.ErrOrStderr())

		token = string(secretBytes)
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		token = line
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// loadConfig returns the effective configuration.
func loadConfig() *Config {
	return &Config{
		Endpoint:    viper.GetString("endpoint"),
		Token:       viper.GetString("token"),
		APIVersion:  viper.GetString("api-version"),
		Output:      viper.GetString("output"),
		HandleStore: viper.GetString("handle-store"),
		NATSURL:     viper.GetString("nats-url"),
		NATSBucket:  viper.GetString("nats-bucket"),
	}
}

// loadPersistedConfig returns the content of the config file only, so that
// flags and environment values are not written back.
func loadPersistedConfig() *Config {
	config := &Config{}

	file, err := configFilePath()
	if err != nil {
		return config
	}

	// file is built from the user's home directory or the --config flag.
	// #nosec G304
	data, err := os.ReadFile(file)
	if err != nil {
		return config
	}

	_ = yaml.Unmarshal(data, config)

	return config
}

func saveConfig(config *Config) error {
	file, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(file), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	err = os.WriteFile(file, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func configFilePath() (string, error) {
	if file := viper.ConfigFileUsed(); file != "" {
		return file, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".artifacts", "config.yml"), nil
}
