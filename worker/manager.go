package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker is one independently schedulable pipeline loop.
type Worker interface {
	Name() string
	Start(ctx context.Context) error
}

// Manager starts and supervises a set of workers.
type Manager struct {
	workers []Worker
	log     *zap.Logger
}

func NewManager(log *zap.Logger, ws ...Worker) *Manager {
	return &Manager{workers: ws, log: log}
}

func (m *Manager) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(m.workers))
	for _, w := range m.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			m.log.Info("worker: starting", zap.String("worker", w.Name()))
			if err := w.Start(ctx); err != nil {
				m.log.Error("worker: exited with error", zap.String("worker", w.Name()), zap.Error(err))
				errs <- err
			}
		}(w)
	}
	// Wait for context cancellation then wait for workers to exit.
	<-ctx.Done()
	wg.Wait()
	close(errs)
	// If any worker returned an error before context cancelled, report one.
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
