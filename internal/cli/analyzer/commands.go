package analyzer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/plot"
)

var errUnsafePlot = errors.New("plot code is unsafe")

func (c *cli) newAskCommand() *cobra.Command {
	var showSQL bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question is required")
			}
			pipeline, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = pipeline.Close() }()

			session, err := pipeline.NewSession(cmd.Context(), uuid.NewString(), false)
			if err != nil {
				return err
			}
			turn := pipeline.HandleTurn(cmd.Context(), session, question)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, turn.Reply.Text())
			if showSQL && turn.SQL != "" {
				_, _ = fmt.Fprintln(out, "SQL: "+turn.SQL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSQL, "show-sql", false, "print the generated SQL")
	return cmd
}

func (c *cli) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the schema description given to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = pipeline.Close() }()

			schema, err := pipeline.DescribeSchema(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), schema)
			return nil
		},
	}
}

func (c *cli) newCheckPlotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-plot <file>",
		Short: "Strip and vet plotting code without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			validated, verdict := plot.DefaultSanitizer().Validate(plot.Code(source))
			out := cmd.OutOrStdout()
			if !verdict.Safe {
				_, _ = fmt.Fprintln(out, warnStyle.Sprint("unsafe: ")+verdict.Reason)
				return errUnsafePlot
			}
			_, _ = fmt.Fprintln(out, assistantStyle.Sprint("safe"))
			_, _ = fmt.Fprintln(out, validated.String())
			return nil
		},
	}
}
