// Package draft turns relevant discovered items into candidate replies via
// the generation model, one draft per item.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promoscout/internal/ai"
	"promoscout/internal/breaker"
	"promoscout/internal/config"
	"promoscout/internal/model"
	"promoscout/internal/storage"
)

// maxTokens caps the completion; the prompt asks for 50-150 words.
const maxTokens = 400

// BatchResult tallies one batch generation run.
type BatchResult struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// Generator creates drafts for relevant items.
type Generator struct {
	gen        ai.Generator
	store      *storage.Store
	log        *zap.Logger
	approaches []Approach
	rand       *rand.Rand
}

func NewGenerator(gen ai.Generator, store *storage.Store, approaches []Approach, log *zap.Logger) *Generator {
	if len(approaches) == 0 {
		approaches = DefaultApproaches()
	}
	return &Generator{
		gen:        gen,
		store:      store,
		log:        log,
		approaches: approaches,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// pick selects an approach: by name when supplied, otherwise randomly with
// the project's promotional ratio deciding the family.
func (g *Generator) pick(p config.ProjectConfig, name string) (Approach, error) {
	if name != "" {
		for _, a := range g.approaches {
			if a.Name == name {
				return a, nil
			}
		}
		return Approach{}, fmt.Errorf("unknown approach: %s", name)
	}
	var promo, organic []Approach
	for _, a := range g.approaches {
		if a.Promotional {
			promo = append(promo, a)
		} else {
			organic = append(organic, a)
		}
	}
	family := organic
	if g.rand.Float64() < p.PromotionalRatio && len(promo) > 0 {
		family = promo
	}
	if len(family) == 0 {
		family = g.approaches
	}
	return family[g.rand.Intn(len(family))], nil
}

// Generate creates and persists one draft for the item. approachName may be
// empty to let the generator choose.
func (g *Generator) Generate(ctx context.Context, p config.ProjectConfig, item model.DiscoveredItem, approachName string) (*model.Draft, error) {
	approach, err := g.pick(p, approachName)
	if err != nil {
		return nil, err
	}
	prompt := BuildPrompt(p, item, approach)
	out, err := g.gen.Complete(ctx, prompt, maxTokens)
	if err != nil {
		return nil, err
	}
	body := StripWrappingQuotes(out)
	meta, _ := json.Marshal(map[string]string{
		"model":    g.gen.Model(),
		"approach": approach.Name,
	})
	d := &model.Draft{
		ID:            uuid.New().String(),
		ItemID:        item.ID,
		Project:       p.Name,
		Body:          body,
		OriginalBody:  body,
		IsPromotional: approach.Promotional,
		Approach:      approach.Name,
		Status:        model.DraftStatusDraft,
		Model:         g.gen.Model(),
		Meta:          string(meta),
	}
	if err := g.store.CreateDraft(ctx, d); err != nil {
		return nil, err
	}
	g.log.Info("draft: generated",
		zap.String("project", p.Name),
		zap.String("item", item.ID),
		zap.String("approach", approach.Name),
		zap.Bool("promotional", approach.Promotional))
	return d, nil
}

// GenerateBatch drafts replies for all of the project's relevant items that
// have no active (non-rejected) draft yet. Per-item failures are tallied and
// skipped, never fatal for the batch.
func (g *Generator) GenerateBatch(ctx context.Context, p config.ProjectConfig) (BatchResult, error) {
	items, err := g.store.RelevantItemsWithoutDraft(ctx, p.Name)
	if err != nil {
		return BatchResult{}, err
	}
	var res BatchResult
	for _, item := range items {
		if _, err := g.Generate(ctx, p, item, ""); err != nil {
			res.Errors++
			if errors.Is(err, breaker.ErrOpen) {
				g.log.Warn("draft: generation circuit open, stopping batch", zap.String("project", p.Name))
				res.Skipped = len(items) - res.Generated - res.Errors
				break
			}
			g.log.Error("draft: generation failed", zap.String("item", item.ID), zap.Error(err))
			continue
		}
		res.Generated++
	}
	return res, nil
}
