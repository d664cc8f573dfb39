package chat

import (
	"bytes"
	"context"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/plot"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/storage"
)

type PlotGenerator interface {
	Generate(ctx context.Context, frame query.Result, question string) (plot.Code, error)
}

type PlotDependencies struct {
	Generator PlotGenerator
	Sanitizer *plot.Sanitizer
	Runner    plot.Runner
	// Artifacts is optional; rendered charts are uploaded when set.
	Artifacts storage.ObjectStore
	Now       func() time.Time
}

type PlotOutcome int

const (
	PlotRendered PlotOutcome = iota
	PlotNoData
	PlotUnsafe
	PlotFailed
	PlotDisabled
)

func (o PlotOutcome) String() string {
	switch o {
	case PlotRendered:
		return "rendered"
	case PlotNoData:
		return "no_data"
	case PlotUnsafe:
		return "unsafe"
	case PlotFailed:
		return "failed"
	case PlotDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// PlotResult never touches the conversation history. Code holds the
// validated snippet once it passed the sanitizer.
type PlotResult struct {
	Outcome     PlotOutcome
	Code        string
	Image       plot.Image
	ArtifactKey string
	Reason      string
	Err         error
}

// RenderPlot charts the result stashed by the last data turn. The stash is
// consumed by any execution attempt; an unsafe snippet leaves it in place so
// the user may try again.
func (o *Orchestrator) RenderPlot(ctx context.Context, session *Session) PlotResult {
	ctx = observability.ContextWithSessionID(ctx, session.ID)
	deps := o.deps.Plot
	if !session.HasChartData() {
		return PlotResult{Outcome: PlotNoData, Reason: "no query result is available for a chart"}
	}
	if deps.Runner == nil || deps.Generator == nil || deps.Sanitizer == nil {
		return PlotResult{Outcome: PlotDisabled, Reason: plot.ErrRunnerDisabled.Error(), Err: plot.ErrRunnerDisabled}
	}
	frame, question := *session.frame, session.frameQuestion

	code, err := deps.Generator.Generate(ctx, frame, question)
	if err != nil {
		return PlotResult{Outcome: PlotFailed, Reason: err.Error(), Err: err}
	}

	validated, verdict := deps.Sanitizer.Validate(code)
	if !verdict.Safe {
		o.logger.WarnContext(ctx, "plot code rejected", append(observability.LogAttrs(ctx), "reason", verdict.Reason)...)
		return PlotResult{Outcome: PlotUnsafe, Reason: verdict.Reason, Err: plot.ErrUnsafeCode}
	}

	encoded, err := plot.EncodeFrame(frame)
	if err != nil {
		return PlotResult{Outcome: PlotFailed, Code: validated.String(), Reason: err.Error(), Err: err}
	}

	image, err := deps.Runner.Run(ctx, validated, encoded)
	session.clearFrame()
	observability.ObservePlotRender(err)
	if err != nil {
		return PlotResult{Outcome: PlotFailed, Code: validated.String(), Reason: err.Error(), Err: err}
	}

	result := PlotResult{Outcome: PlotRendered, Code: validated.String(), Image: image}
	if deps.Artifacts != nil {
		result.ArtifactKey = o.storeChart(ctx, deps, session.ID, image)
		if result.ArtifactKey != "" {
			session.RecordArtifact(result.ArtifactKey)
		}
	}
	return result
}

func (o *Orchestrator) storeChart(ctx context.Context, deps PlotDependencies, sessionID string, image plot.Image) string {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	key, err := storage.BuildChartPath(sessionID, now(), "png")
	if err != nil {
		o.logger.WarnContext(ctx, "chart key rejected", append(observability.LogAttrs(ctx), "error", err.Error())...)
		return ""
	}
	if _, err := deps.Artifacts.Put(ctx, key, bytes.NewReader(image.Data), int64(len(image.Data)), storage.PutOptions{ContentType: image.ContentType}); err != nil {
		o.logger.WarnContext(ctx, "chart upload failed", append(observability.LogAttrs(ctx), "key", key, "error", err.Error())...)
		return ""
	}
	return key
}
