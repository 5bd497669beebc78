// Package classify scores discovered items in two phases: fast keyword
// pattern tagging, then an AI relevance call for the survivors.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"promoscout/internal/ai"
	"promoscout/internal/breaker"
	"promoscout/internal/config"
	"promoscout/internal/model"
	"promoscout/internal/storage"
)

// Scorer is the generation boundary the classifier consumes.
type Scorer interface {
	Score(ctx context.Context, prompt string) (ai.ScoreResult, error)
}

// Result tallies one classification run.
type Result struct {
	Processed  int `json:"processed"`
	Relevant   int `json:"relevant"`
	Irrelevant int `json:"irrelevant"`
	Errors     int `json:"errors"` // items left pending for the next pass
}

// Classifier runs classification for one project at a time.
type Classifier struct {
	gen    Scorer
	store  *storage.Store
	runs   *storage.RunStore
	log    *zap.Logger
	fanout int
}

func NewClassifier(gen Scorer, store *storage.Store, runs *storage.RunStore, fanout int, log *zap.Logger) *Classifier {
	if fanout <= 0 {
		fanout = 4
	}
	return &Classifier{gen: gen, store: store, runs: runs, log: log, fanout: fanout}
}

// Classify processes all of the project's pending items. A generation failure
// for one item leaves it pending and never aborts the batch.
func (c *Classifier) Classify(ctx context.Context, p config.ProjectConfig) (Result, error) {
	started := time.Now().UTC()
	c.setRunStatus(ctx, p.Name, "running", Result{}, started, time.Time{})

	items, err := c.store.PendingItems(ctx, p.Name, 0)
	if err != nil {
		c.setRunStatus(ctx, p.Name, "failed", Result{}, started, time.Now().UTC())
		return Result{}, err
	}

	var (
		mu  sync.Mutex
		res Result
	)
	sem := make(chan struct{}, c.fanout)
	var wg sync.WaitGroup
	for _, item := range items {
		item := item
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			relevant, err := c.classifyOne(ctx, p, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors++
				return
			}
			res.Processed++
			if relevant {
				res.Relevant++
			} else {
				res.Irrelevant++
			}
		}()
	}
	wg.Wait()

	c.setRunStatus(ctx, p.Name, "completed", res, started, time.Now().UTC())
	c.log.Info("classify: run completed",
		zap.String("project", p.Name),
		zap.Int("processed", res.Processed),
		zap.Int("relevant", res.Relevant),
		zap.Int("errors", res.Errors))
	return res, nil
}

func (c *Classifier) classifyOne(ctx context.Context, p config.ProjectConfig, item model.DiscoveredItem) (bool, error) {
	intent, promo := provisionalIntent(item, p.Brand)
	if promo {
		// very likely competitor self-promotion, not worth an AI call
		return false, c.store.UpdateClassification(ctx, item.ID, intent, nil, model.FilterIrrelevant)
	}

	scored, err := c.gen.Score(ctx, ScorePrompt(p, item))
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			c.log.Warn("classify: generation circuit open", zap.String("project", p.Name))
		} else {
			c.log.Error("classify: scoring failed", zap.String("item", item.ID), zap.Error(err))
		}
		// leave the item pending; it is retried on the next pass
		return false, err
	}

	normalized := scored.Score / 10.0
	status := model.FilterIrrelevant
	if normalized >= p.MinRelevance {
		status = model.FilterRelevant
	}
	final := parseIntent(scored.Intent, intent)
	if err := c.store.UpdateClassification(ctx, item.ID, final, &normalized, status); err != nil {
		return false, err
	}
	return status == model.FilterRelevant, nil
}

// ScorePrompt builds the relevance-scoring prompt for one item.
func ScorePrompt(p config.ProjectConfig, item model.DiscoveredItem) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Brand: %s\n", p.Brand.Name)
	fmt.Fprintf(b, "Brand description: %s\n", p.Brand.Description)
	if len(p.Brand.Competitors) > 0 {
		fmt.Fprintf(b, "Competitors: %s\n", strings.Join(p.Brand.Competitors, ", "))
	}
	fmt.Fprintf(b, "\nPost title: %s\n", item.Title)
	fmt.Fprintf(b, "Post snippet: %s\n", item.Snippet)
	b.WriteString("\nRate from 0 to 10 how good an opportunity this post is for the brand to join the conversation with a helpful reply, and label the poster's intent.")
	return b.String()
}

func (c *Classifier) setRunStatus(ctx context.Context, project, state string, r Result, started, finished time.Time) {
	if c.runs == nil {
		return
	}
	rs := storage.RunStatus{
		Project:    project,
		Kind:       storage.RunClassification,
		State:      state,
		Processed:  r.Processed,
		Stored:     r.Relevant,
		Errors:     r.Errors,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := c.runs.Set(ctx, rs); err != nil {
		c.log.Warn("classify: run status write failed", zap.String("project", project), zap.Error(err))
	}
}
