package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/placeskit/pkg/config"
	"github.com/matzehuels/placeskit/pkg/quota"
)

// quotaCommand creates the quota management command.
func (c *CLI) quotaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect the daily request quota",
		Long: `Inspect the daily request quota.

By default the count lives in a tab-separated tracker file (quota.file in the
config, PlacesTracker.txt unless changed). Set quota.redis_addr to share one
counter between machines.`,
	}

	cmd.AddCommand(c.quotaStatusCommand())
	cmd.AddCommand(c.quotaHistoryCommand())
	cmd.AddCommand(c.quotaInitCommand())

	return cmd
}

// quotaStatusCommand creates the "quota status" subcommand.
func (c *CLI) quotaStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's usage without counting a request",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := c.newTracker(cmd.Context())
			if err != nil {
				return fmt.Errorf("open quota: %w", err)
			}
			defer tracker.Close()

			u, err := tracker.Usage(cmd.Context())
			if err != nil {
				return fmt.Errorf("read quota: %w", err)
			}
			fmt.Fprintln(stdout, StyleTitle.Render("Quota"))
			printUsage(u)
			if u.Exhausted() {
				printWarning("Further requests today will be refused")
			}
			return nil
		},
	}
}

// quotaHistoryCommand creates the "quota history" subcommand.
func (c *CLI) quotaHistoryCommand() *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded daily counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := c.newTracker(cmd.Context())
			if err != nil {
				return fmt.Errorf("open quota: %w", err)
			}
			defer tracker.Close()

			entries, err := tracker.History(cmd.Context())
			if err != nil {
				return fmt.Errorf("read quota history: %w", err)
			}
			if len(entries) == 0 {
				printInfo("No requests recorded yet")
				return nil
			}
			if last > 0 && len(entries) > last {
				entries = entries[len(entries)-last:]
			}
			printRaw(historyTable(entries, tracker.Limit()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&last, "last", "n", 0, "show only the most recent n days")
	return cmd
}

// quotaInitCommand creates the "quota init" subcommand.
func (c *CLI) quotaInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty tracker file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Quota.RedisAddr != "" {
				printInfo("Quota is kept in Redis at %s, nothing to create", c.cfg.Quota.RedisAddr)
				return nil
			}
			path, err := config.ExpandHome(c.cfg.Quota.File)
			if err != nil {
				return err
			}
			if err := quota.Init(path); err != nil {
				return err
			}
			printSuccess("Created tracker file")
			printDetail("File: %s", path)
			return nil
		},
	}
}
