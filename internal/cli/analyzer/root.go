// Package analyzer implements the analyzer terminal client.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/config"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
)

const defaultEnvFile = "Configuration.env"

// Pipeline is the part of the runtime the commands drive.
type Pipeline interface {
	NewSession(ctx context.Context, id string, greet bool) (*chat.Session, error)
	HandleTurn(ctx context.Context, session *chat.Session, text string) chat.TurnResult
	RenderPlot(ctx context.Context, session *chat.Session) chat.PlotResult
	DescribeSchema(ctx context.Context) (string, error)
	Close() error
}

type OpenFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Pipeline, error)

type Options struct {
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	LookupEnv  config.LookupFunc
	Open       OpenFunc
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = io.Discard
	}
	if o.Stderr == nil {
		o.Stderr = io.Discard
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
	if o.Open == nil {
		o.Open = OpenRuntime
	}
	return o
}

type cli struct {
	opts    Options
	envFile string
}

// NewRootCommand builds the command tree. Running the root without a
// subcommand starts the interactive chat.
func NewRootCommand(opts Options) *cobra.Command {
	c := &cli{opts: opts.withDefaults()}

	root := &cobra.Command{
		Use:           "analyzer",
		Short:         "Ask questions about your data in plain language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.opts.Stdin)
	root.SetOut(c.opts.Stdout)
	root.SetErr(c.opts.Stderr)
	root.PersistentFlags().StringVar(&c.envFile, "env-file", defaultEnvFile, "dotenv file layered under the process environment")

	chatCmd := c.newChatCommand()
	root.RunE = chatCmd.RunE
	root.Flags().AddFlagSet(chatCmd.Flags())

	root.AddCommand(chatCmd)
	root.AddCommand(c.newAskCommand())
	root.AddCommand(c.newSchemaCommand())
	root.AddCommand(c.newCheckPlotCommand())
	root.AddCommand(c.newRemoteCommand())
	root.AddCommand(c.newSampleDataCommand())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (c *cli) loadConfig() (config.Config, error) {
	lookup, _, err := config.DotEnvLookup(c.envFile, c.opts.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load("analyzer", lookup)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (c *cli) open(ctx context.Context) (Pipeline, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(cfg, c.opts.Stderr)
	return c.opts.Open(ctx, cfg, logger)
}
