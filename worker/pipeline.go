package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"promoscout/internal/classify"
	"promoscout/internal/config"
	"promoscout/internal/discovery"
	"promoscout/internal/draft"
)

// runLoop runs fn immediately, then on every tick until the context ends.
func runLoop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	fn(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn(ctx)
		}
	}
}

// DiscoveryWorker periodically runs discovery for one project.
type DiscoveryWorker struct {
	Engine   *discovery.Engine
	Project  config.ProjectConfig
	Interval time.Duration
	Log      *zap.Logger
}

func (w *DiscoveryWorker) Name() string { return "discovery/" + w.Project.Name }

func (w *DiscoveryWorker) Start(ctx context.Context) error {
	return runLoop(ctx, w.Interval, func(ctx context.Context) {
		if _, err := w.Engine.Discover(ctx, w.Project); err != nil {
			w.Log.Error("discovery worker: run failed", zap.String("project", w.Project.Name), zap.Error(err))
		}
	})
}

// ClassifyWorker periodically classifies pending items for one project.
type ClassifyWorker struct {
	Classifier *classify.Classifier
	Project    config.ProjectConfig
	Interval   time.Duration
	Log        *zap.Logger
}

func (w *ClassifyWorker) Name() string { return "classify/" + w.Project.Name }

func (w *ClassifyWorker) Start(ctx context.Context) error {
	return runLoop(ctx, w.Interval, func(ctx context.Context) {
		if _, err := w.Classifier.Classify(ctx, w.Project); err != nil {
			w.Log.Error("classify worker: run failed", zap.String("project", w.Project.Name), zap.Error(err))
		}
	})
}

// DraftWorker periodically drafts replies for one project's relevant items.
type DraftWorker struct {
	Generator *draft.Generator
	Project   config.ProjectConfig
	Interval  time.Duration
	Log       *zap.Logger
}

func (w *DraftWorker) Name() string { return "draft/" + w.Project.Name }

func (w *DraftWorker) Start(ctx context.Context) error {
	return runLoop(ctx, w.Interval, func(ctx context.Context) {
		res, err := w.Generator.GenerateBatch(ctx, w.Project)
		if err != nil {
			w.Log.Error("draft worker: run failed", zap.String("project", w.Project.Name), zap.Error(err))
			return
		}
		if res.Generated > 0 || res.Errors > 0 {
			w.Log.Info("draft worker: batch done",
				zap.String("project", w.Project.Name),
				zap.Int("generated", res.Generated),
				zap.Int("errors", res.Errors))
		}
	})
}
