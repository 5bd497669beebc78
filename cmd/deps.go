package cmd

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"promoscout/internal/ai"
	"promoscout/internal/breaker"
	"promoscout/internal/config"
	"promoscout/internal/draft"
	"promoscout/internal/posting"
	"promoscout/internal/serp"
	"promoscout/internal/storage"
)

// newLogger builds the process logger from config.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.App.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newBreaker builds one breaker instance for a named dependency.
func newBreaker(cfg config.BreakerConfig, name string) (*breaker.Breaker, error) {
	recovery, err := time.ParseDuration(cfg.RecoveryTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid breaker.recovery_timeout: %w", err)
	}
	return breaker.New(name, cfg.FailureThreshold, recovery), nil
}

// newLimiter builds the minimum inter-call spacing limiter for a dependency.
func newLimiter(minInterval string) (*rate.Limiter, error) {
	d, err := time.ParseDuration(minInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid min_interval: %w", err)
	}
	return rate.NewLimiter(rate.Every(d), 1), nil
}

// clients bundles the three guarded external clients. Each gets its own
// breaker; failure domains are independent.
type clients struct {
	serp    *serp.Client
	gen     *ai.OpenAIClient
	posting *posting.Client
}

func newClients(cfg config.Config, log *zap.Logger) (*clients, error) {
	out := &clients{}

	if cfg.Serp.APIKey != "" {
		br, err := newBreaker(cfg.Breaker, "search")
		if err != nil {
			return nil, err
		}
		lim, err := newLimiter(cfg.Serp.MinInterval)
		if err != nil {
			return nil, err
		}
		out.serp = serp.NewClient(cfg.Serp.BaseURL, cfg.Serp.APIKey, br, lim)
	}

	if cfg.OpenAI.APIKey != "" {
		br, err := newBreaker(cfg.Breaker, "generation")
		if err != nil {
			return nil, err
		}
		lim, err := newLimiter(cfg.OpenAI.MinInterval)
		if err != nil {
			return nil, err
		}
		out.gen = ai.NewOpenAI(ai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		}, br, lim, log)
	}

	if cfg.Posting.APIKey != "" {
		br, err := newBreaker(cfg.Breaker, "posting")
		if err != nil {
			return nil, err
		}
		lim, err := newLimiter(cfg.Posting.MinInterval)
		if err != nil {
			return nil, err
		}
		out.posting = posting.New(cfg.Posting.BaseURL, cfg.Posting.APIKey, br, lim)
	}

	return out, nil
}

// openStore opens the sqlite-backed store.
func openStore(cfg config.Config) (*storage.Store, error) {
	return storage.Open(cfg.Database.DSN)
}

// loadApproaches returns the configured catalog or the built-in one.
func loadApproaches(cfg config.Config) ([]draft.Approach, error) {
	if cfg.Pipeline.ApproachesFile == "" {
		return draft.DefaultApproaches(), nil
	}
	return draft.LoadApproaches(cfg.Pipeline.ApproachesFile)
}

// requireProject resolves a project name from config.
func requireProject(cfg config.Config, name string) (config.ProjectConfig, error) {
	p := cfg.Project(name)
	if p == nil {
		return config.ProjectConfig{}, fmt.Errorf("project not found: %s", name)
	}
	return *p, nil
}
