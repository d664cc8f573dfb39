package analyzer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
)

const chartCommand = "/chart"

var (
	assistantStyle = pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	userStyle      = pterm.NewStyle(pterm.FgLightBlue)
	hintStyle      = pterm.NewStyle(pterm.FgGray)
	warnStyle      = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
)

func (c *cli) newChatCommand() *cobra.Command {
	var (
		showSQL  bool
		chartDir string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = pipeline.Close() }()

			session, err := pipeline.NewSession(cmd.Context(), uuid.NewString(), false)
			if err != nil {
				return err
			}
			return runREPL(cmd, pipeline, session, replOptions{showSQL: showSQL, chartDir: chartDir})
		},
	}
	cmd.Flags().BoolVar(&showSQL, "show-sql", false, "print the generated SQL after each data answer")
	cmd.Flags().StringVar(&chartDir, "chart-dir", ".", "directory where /chart writes rendered images")
	return cmd
}

type replOptions struct {
	showSQL  bool
	chartDir string
}

func runREPL(cmd *cobra.Command, pipeline Pipeline, session *chat.Session, opts replOptions) error {
	out := cmd.OutOrStdout()
	writeBanner(out)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		_, _ = fmt.Fprint(out, userStyle.Sprint("You: "))
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		switch {
		case text == "":
			continue
		case isExit(text):
			_, _ = fmt.Fprintln(out, hintStyle.Sprint("Goodbye!"))
			return nil
		case text == chartCommand:
			writeChart(out, pipeline.RenderPlot(cmd.Context(), session), opts.chartDir)
			continue
		}

		turn := pipeline.HandleTurn(cmd.Context(), session, text)
		_, _ = fmt.Fprintln(out, assistantStyle.Sprint("Assistant: ")+turn.Reply.Text())
		if opts.showSQL && turn.SQL != "" {
			_, _ = fmt.Fprintln(out, hintStyle.Sprint("SQL: "+turn.SQL))
		}
		if session.HasChartData() {
			_, _ = fmt.Fprintln(out, hintStyle.Sprintf("Type %s to plot this result.", chartCommand))
		}
	}
}

func isExit(text string) bool {
	switch strings.ToLower(text) {
	case "exit", "quit":
		return true
	}
	return false
}

func writeBanner(out io.Writer) {
	body := strings.Join([]string{
		chat.GreetingTurn().Text(),
		"",
		"Try asking:",
	}, "\n")
	for _, suggestion := range chat.Suggestions {
		body += "\n  • " + suggestion
	}
	body += "\n\nType exit or quit to leave."
	_, _ = fmt.Fprintln(out, pterm.DefaultBox.
		WithTitle(assistantStyle.Sprint("LLM Data Analyzer")).
		WithPadding(1).
		Sprint(body))
}

func writeChart(out io.Writer, result chat.PlotResult, dir string) {
	switch result.Outcome {
	case chat.PlotRendered:
	case chat.PlotUnsafe:
		_, _ = fmt.Fprintln(out, warnStyle.Sprint("The generated chart code was not considered safe to run: ")+result.Reason)
		return
	default:
		_, _ = fmt.Fprintln(out, warnStyle.Sprint("Could not render a chart: ")+result.Reason)
		return
	}

	_, _ = fmt.Fprintln(out, hintStyle.Sprint(result.Code))
	name := filepath.Join(dir, fmt.Sprintf("chart-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(name, result.Image.Data, 0o644); err != nil {
		_, _ = fmt.Fprintln(out, warnStyle.Sprint("Could not save chart: ")+err.Error())
		return
	}
	_, _ = fmt.Fprintln(out, assistantStyle.Sprint("Chart saved to ")+name)
	if result.ArtifactKey != "" {
		_, _ = fmt.Fprintln(out, hintStyle.Sprint("Uploaded as "+result.ArtifactKey))
	}
}
