// Package scheduler runs the periodic full re-ingestion backstop.
//
// Webhook-driven updates keep the knowledge base current, but deliveries can
// be missed. A cron-scheduled full reindex bounds how stale it can get.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/halcyonlabs/docsentry/internal/logging"
)

// Reindexer rebuilds the knowledge base from the repository.
// Implemented by pipeline.Pipeline.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// Scheduler triggers reindex runs on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	target  Reindexer
	logger  *logging.Logger
	entryID cron.EntryID
}

// New creates a scheduler for the given cron spec (standard 5-field format).
func New(spec string, target Reindexer, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		target: target,
		logger: logger.Named("scheduler"),
	}
}

// Start registers the reindex job and starts the cron loop. The loop stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info(ctx, "scheduled reindex starting")
		if err := s.target.Reindex(ctx); err != nil {
			s.logger.Error(ctx, "scheduled reindex failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	s.logger.Info(ctx, "scheduler started", zap.String("spec", s.spec))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
