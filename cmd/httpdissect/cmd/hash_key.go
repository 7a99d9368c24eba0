package cmd

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/spf13/cobra"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Generate an argon2id hash for an API key",
	Long: `Generate an argon2id hash of an API key for use in config.

The output can be used directly in the auth.api_keys[].key_hash field:

  auth:
    api_keys:
      - name: ci
        key_hash: "$argon2id$v=19$m=65536,t=1,p=..."

Security note: The key will appear in shell history.
Consider using an environment variable:
  httpdissect hash-key "$MY_API_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := argon2id.CreateHash(args[0], argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("hash key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
