package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/typetools/ttxdiff/pkg/config"
	"github.com/typetools/ttxdiff/pkg/report"
)

// historyCommand creates the history command for inspecting past runs.
func (c *CLI) historyCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect previously recorded comparison runs",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file")

	cmd.AddCommand(c.historyListCommand(&configPath))
	cmd.AddCommand(c.historyShowCommand(&configPath))

	return cmd
}

// openStore opens the run history database read-write.
func openStore(configPath string) (report.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	path := cfg.History.Path
	if path == "" {
		if path, err = historyPath(); err != nil {
			return nil, err
		}
	}
	return report.NewSQLiteStore(path)
}

func (c *CLI) historyListCommand(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent comparison runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				printInfo("No recorded runs")
				return nil
			}

			for _, s := range summaries {
				score := StyleNumber.Render(fmt.Sprintf("%.4f", s.Score))
				line := StyleDim.Render(s.CreatedAt.Format("2006-01-02 15:04")) +
					"  " + score +
					"  " + StyleValue.Render(s.Source)
				if s.Failures > 0 {
					line += "  " + StyleError.Render(fmt.Sprintf("%d failed", s.Failures))
				}
				line += "  " + StyleDim.Render(s.RunID)
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func (c *CLI) historyShowCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the full JSON report of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			comparison, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if comparison == nil {
				return fmt.Errorf("unknown run: %s", args[0])
			}

			data, err := comparison.JSON()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
