package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/placeskit/pkg/credentials"
)

// keysCommand creates the keys command.
func (c *CLI) keysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect API credentials",
		Long: `Inspect API credentials.

Credentials are read from keys_file in the config, one name:secret pair per
line. Only the first colon separates the name from the secret.`,
	}
	cmd.AddCommand(c.keysListCommand())
	return cmd
}

// keysListCommand creates the "keys list" subcommand.
func (c *CLI) keysListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credential names with masked secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := c.loadKeys()
			if err != nil {
				return fmt.Errorf("load keys: %w", err)
			}
			if len(keys) == 0 {
				printInfo("No credentials in %s", c.cfg.KeysFile)
				return nil
			}
			for _, name := range keys.Names() {
				value := credentials.Mask(keys[name])
				if name == c.cfg.KeyName {
					value += StyleSuccess.Render(" (default)")
				}
				printKeyValue(name, value)
			}
			return nil
		},
	}
}
