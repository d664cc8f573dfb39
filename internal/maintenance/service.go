// Package maintenance expires idle chat sessions and removes the charts they
// stored.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/chat"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/observability"
	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/storage"
)

type SessionExpirer interface {
	Expire(cutoff time.Time) []*chat.Session
}

type Config struct {
	SweepInterval time.Duration
	IdleTTL       time.Duration
}

type Service struct {
	Sessions  SessionExpirer
	Artifacts storage.ObjectStore
	Config    Config
	Logger    *slog.Logger
	Clock     func() time.Time
}

type SweepSummary struct {
	SessionsExpired int `json:"sessions_expired"`
	CandidateCharts int `json:"candidate_charts"`
	ChartsDeleted   int `json:"charts_deleted"`
	Failures        int `json:"failures"`
}

// Run sweeps on every tick until ctx is done. A zero IdleTTL disables it.
func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()
	if s.Config.IdleTTL <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.Config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			summary, err := s.RunSweepOnce(ctx)
			if err != nil {
				s.Logger.ErrorContext(ctx, "session sweep failed", slog.Any("error", err), slog.Any("summary", summary))
				continue
			}
			if summary.SessionsExpired > 0 {
				s.Logger.InfoContext(ctx, "session sweep completed", slog.Any("summary", summary))
			}
		}
	}
}

func (s *Service) RunSweepOnce(ctx context.Context) (SweepSummary, error) {
	s.ensureDefaults()
	if s.Sessions == nil {
		return SweepSummary{}, fmt.Errorf("session registry is required")
	}

	cutoff := s.Clock().Add(-s.Config.IdleTTL)
	expired := s.Sessions.Expire(cutoff)
	summary := SweepSummary{SessionsExpired: len(expired)}
	sessionsExpiredTotal.Add(float64(len(expired)))

	var failures []string
	for _, session := range expired {
		keys := session.Artifacts()
		summary.CandidateCharts += len(keys)
		if s.Artifacts == nil {
			continue
		}
		for _, key := range keys {
			if err := s.Artifacts.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
				summary.Failures++
				failures = append(failures, fmt.Sprintf("session %s delete chart %s: %v", session.ID, key, err))
				continue
			}
			summary.ChartsDeleted++
		}
	}
	chartsDeletedTotal.Add(float64(summary.ChartsDeleted))

	if len(failures) > 0 {
		sweepRunsTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("sweep encountered %d failure(s): %s", len(failures), strings.Join(failures, "; "))
	}
	sweepRunsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

func (s *Service) ensureDefaults() {
	if s.Config.SweepInterval <= 0 {
		s.Config.SweepInterval = time.Minute
	}
	if s.Logger == nil {
		s.Logger = observability.NopLogger()
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
}
