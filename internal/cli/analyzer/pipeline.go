package analyzer

import (
	"context"
	"log/slog"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/app"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/config"
)

type runtimePipeline struct {
	rt *app.Runtime
}

// OpenRuntime builds the full pipeline from configuration.
func OpenRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (Pipeline, error) {
	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return runtimePipeline{rt: rt}, nil
}

func (p runtimePipeline) NewSession(ctx context.Context, id string, greet bool) (*chat.Session, error) {
	return p.rt.NewSession(ctx, id, greet)
}

func (p runtimePipeline) HandleTurn(ctx context.Context, session *chat.Session, text string) chat.TurnResult {
	return p.rt.Orchestrator.HandleTurn(ctx, session, text)
}

func (p runtimePipeline) RenderPlot(ctx context.Context, session *chat.Session) chat.PlotResult {
	return p.rt.Orchestrator.RenderPlot(ctx, session)
}

func (p runtimePipeline) DescribeSchema(ctx context.Context) (string, error) {
	return p.rt.Engine.DescribeSchema(ctx, p.rt.Config.Database.SchemaName)
}

func (p runtimePipeline) Close() error {
	return p.rt.Close()
}
