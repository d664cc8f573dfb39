package analyzer

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query/sqldb"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/sampledata"
)

func (c *cli) newSampleDataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample-data",
		Short: "Load or drop the demo clients dataset",
	}

	var upSteps, downSteps int
	load := &cobra.Command{
		Use:   "load",
		Short: "Create and fill the demo tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSampleRunner(cmd, func(engine *sqldb.Engine, runner *sampledata.Runner) error {
				applied, err := runner.Up(cmd.Context(), engine.DB(), upSteps)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied %d sample script(s)\n", applied)
				return nil
			})
		},
	}
	load.Flags().IntVar(&upSteps, "steps", 0, "number of scripts to apply, 0 for all")

	drop := &cobra.Command{
		Use:   "drop",
		Short: "Revert the most recent demo scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSampleRunner(cmd, func(engine *sqldb.Engine, runner *sampledata.Runner) error {
				reverted, err := runner.Down(cmd.Context(), engine.DB(), downSteps)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reverted %d sample script(s)\n", reverted)
				return nil
			})
		},
	}
	drop.Flags().IntVar(&downSteps, "steps", 1, "number of scripts to revert")

	status := &cobra.Command{
		Use:   "status",
		Short: "List demo scripts and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSampleRunner(cmd, func(engine *sqldb.Engine, runner *sampledata.Runner) error {
				items, err := runner.Status(cmd.Context(), engine.DB())
				if err != nil {
					return err
				}
				for _, item := range items {
					state := "pending"
					if item.Applied {
						state = "applied"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.Name, state)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(load, drop, status)
	return cmd
}

func (c *cli) withSampleRunner(cmd *cobra.Command, fn func(*sqldb.Engine, *sampledata.Runner) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	engine, err := sqldb.Open(cmd.Context(), sqldb.Config{
		URI:             cfg.Database.URI,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		QueryTimeout:    cfg.Database.QueryTimeout,
	}, nil)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()
	return fn(engine, sampledata.NewRunner(engine.Dialect()))
}
