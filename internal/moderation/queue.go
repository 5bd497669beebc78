// Package moderation exposes the cross-project draft queue. Every transition
// carries an expected-status precondition so two moderators racing on the
// same draft resolve to exactly one winner and one conflict.
package moderation

import (
	"context"

	"go.uber.org/zap"

	"promoscout/internal/model"
	"promoscout/internal/storage"
)

// Queue applies moderation actions to drafts.
type Queue struct {
	store *storage.Store
	log   *zap.Logger
}

func NewQueue(store *storage.Store, log *zap.Logger) *Queue {
	return &Queue{store: store, log: log}
}

// List returns drafts for triage, oldest first across all projects.
func (q *Queue) List(ctx context.Context, f storage.DraftFilter) ([]model.Draft, error) {
	return q.store.ListDrafts(ctx, f)
}

// Approve moves a draft from draft to approved. An edited body, when
// supplied, overwrites body (never original_body) in the same transition.
func (q *Queue) Approve(ctx context.Context, id string, editedBody *string) error {
	updates := map[string]any{"status": model.DraftStatusApproved}
	if editedBody != nil {
		updates["body"] = *editedBody
	}
	err := q.store.TransitionDraft(ctx, id, []model.DraftStatus{model.DraftStatusDraft}, updates)
	if err == nil {
		q.log.Info("moderation: approved", zap.String("draft", id))
	}
	return err
}

// Reject moves a draft to rejected from draft or approved, recording the
// reason.
func (q *Queue) Reject(ctx context.Context, id, reason string) error {
	updates := map[string]any{"status": model.DraftStatusRejected}
	if reason != "" {
		updates["reject_reason"] = reason
	}
	err := q.store.TransitionDraft(ctx, id,
		[]model.DraftStatus{model.DraftStatusDraft, model.DraftStatusApproved}, updates)
	if err == nil {
		q.log.Info("moderation: rejected", zap.String("draft", id), zap.String("reason", reason))
	}
	return err
}

// Edit rewrites a draft's body before approval. original_body is untouched.
func (q *Queue) Edit(ctx context.Context, id, body string) error {
	return q.store.TransitionDraft(ctx, id,
		[]model.DraftStatus{model.DraftStatusDraft},
		map[string]any{"body": body})
}

// SkipItem applies the moderator skip action to a discovered item.
func (q *Queue) SkipItem(ctx context.Context, itemID string) error {
	return q.store.SkipItem(ctx, itemID)
}

// BulkResult reports the outcome for one draft in a bulk operation.
type BulkResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BulkApprove approves each draft independently; one conflict never blocks
// the rest of the batch.
func (q *Queue) BulkApprove(ctx context.Context, ids []string) []BulkResult {
	return q.bulk(ids, func(id string) error { return q.Approve(ctx, id, nil) })
}

// BulkReject rejects each draft independently.
func (q *Queue) BulkReject(ctx context.Context, ids []string) []BulkResult {
	return q.bulk(ids, func(id string) error { return q.Reject(ctx, id, "") })
}

func (q *Queue) bulk(ids []string, fn func(id string) error) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		if err := fn(id); err != nil {
			results = append(results, BulkResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{ID: id, OK: true})
	}
	return results
}
