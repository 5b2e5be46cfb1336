// Package configcmder provides the config command for managing persistent
// askbase configuration stored in the .askbase/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent askbase configuration.

Configuration is stored as config.toml in the .askbase/ directory and provides
default values for command flags. CLI flags and ASKBASE_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  api.listen, client.api_target, storage.sqlite_path,
  vector_store.provider, embedding.model, completion.provider,
  rag.top_k, rag.min_relevance_score, cache.provider, events.provider

Use subcommands to get, set, or list configuration values:
  askbase config set <key> <value>    Set a configuration value
  askbase config get <key>            Get a configuration value
  askbase config list                 List all configuration values

Examples:
  askbase config set completion.provider anthropic
  askbase config set rag.top_k 8
  askbase config get completion.model
  askbase config list`

const configShortDesc string = "Manage persistent askbase configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// unknownKeyHint lists valid keys after an unknown key error.
const unknownKeyHint = "\n\nRun 'askbase config list' to see valid keys."
