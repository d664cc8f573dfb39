// Package app assembles the conversation pipeline from configuration. Both
// the terminal client and the HTTP server start from Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/answer"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/config"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/intent"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/llm"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/nl2sql"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/plot"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query/sqldb"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/resource"
	s3store "github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/storage/s3"
)

type Runtime struct {
	Config       config.Config
	Engine       *sqldb.Engine
	Artifacts    *s3store.Store
	Orchestrator *chat.Orchestrator
	Bootstrap    chat.Bootstrap
	Sanitizer    *plot.Sanitizer

	closers []io.Closer
}

// Build opens the database, the model client and the optional artifact
// store. On error everything opened so far is released.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (rt *Runtime, err error) {
	rt = &Runtime{Config: cfg, Sanitizer: plot.DefaultSanitizer()}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	rt.Engine, err = sqldb.Open(ctx, sqldb.Config{
		URI:             cfg.Database.URI,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		QueryTimeout:    cfg.Database.QueryTimeout,
		RowLimit:        cfg.Database.RowLimit,
	}, logger)
	if err != nil {
		return rt, fmt.Errorf("open database: %w", err)
	}
	rt.closers = append(rt.closers, rt.Engine)

	model, modelCloser, err := llm.NewFromConfig(ctx, cfg.Model, logger)
	if err != nil {
		return rt, fmt.Errorf("init model client: %w", err)
	}
	rt.closers = append(rt.closers, modelCloser)

	if cfg.Artifacts.Enabled {
		rt.Artifacts, err = s3store.New(ctx, s3store.ConfigFromArtifacts(cfg.Artifacts))
		if err != nil {
			return rt, fmt.Errorf("init artifact store: %w", err)
		}
	}

	var remote resource.URLGetter
	if rt.Artifacts != nil {
		remote = rt.Artifacts
	}
	rt.Bootstrap = chat.Bootstrap{
		Describer:          rt.Engine,
		Resources:          resource.NewLoader(remote),
		SchemaName:         cfg.Database.SchemaName,
		SyntaxPath:         cfg.Resources.SyntaxPath,
		DataDictionaryPath: cfg.Resources.DataDictionaryPath,
	}

	plotDeps, err := buildPlot(cfg, model, rt.Sanitizer, logger)
	if err != nil {
		return rt, err
	}
	if rt.Artifacts != nil {
		plotDeps.Artifacts = rt.Artifacts
	}

	rt.Orchestrator = chat.NewOrchestrator(chat.Dependencies{
		Classifier: intent.NewClassifier(model, logger),
		Generator:  nl2sql.NewGenerator(model, logger),
		Engine:     rt.Engine,
		Summarizer: answer.NewSummarizer(model, logger),
		Casual:     answer.NewCasualResponder(model, cfg.Model.CasualTemperature, logger),
		RowLimit:   cfg.Database.RowLimit,
		Plot:       plotDeps,
		Logger:     logger,
	})
	return rt, nil
}

func buildPlot(cfg config.Config, model llm.Model, sanitizer *plot.Sanitizer, logger *slog.Logger) (chat.PlotDependencies, error) {
	if cfg.Plot.Runner == config.PlotRunnerDisabled {
		return chat.PlotDependencies{}, nil
	}
	generator, err := plot.NewGenerator(model, cfg.Model.PlotTemperature, logger)
	if err != nil {
		return chat.PlotDependencies{}, fmt.Errorf("init plot generator: %w", err)
	}

	var runner plot.Runner
	switch cfg.Plot.Runner {
	case config.PlotRunnerProcess:
		runner = plot.NewProcessRunner(plot.ProcessConfig{
			Python:  cfg.Plot.PythonPath,
			Timeout: cfg.Plot.Timeout,
		}, logger)
	case config.PlotRunnerDocker:
		runner, err = plot.NewDockerRunner(plot.DockerConfig{
			Image:   cfg.Plot.DockerImage,
			Timeout: cfg.Plot.Timeout,
		}, logger)
		if err != nil {
			return chat.PlotDependencies{}, fmt.Errorf("init docker plot runner: %w", err)
		}
	default:
		return chat.PlotDependencies{}, fmt.Errorf("unsupported plot runner %q", cfg.Plot.Runner)
	}
	return chat.PlotDependencies{Generator: generator, Sanitizer: sanitizer, Runner: runner}, nil
}

// NewSession starts a session with freshly loaded context.
func (rt *Runtime) NewSession(ctx context.Context, id string, greet bool) (*chat.Session, error) {
	sc, err := rt.Bootstrap.Load(ctx)
	if err != nil {
		return nil, err
	}
	return chat.NewSession(id, sc, greet), nil
}

func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
