// Package orchestrator submits approved drafts to the posting service and
// applies the asynchronous webhook events that follow.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promoscout/internal/breaker"
	"promoscout/internal/model"
	"promoscout/internal/posting"
	"promoscout/internal/storage"
)

// Poster is the posting-service boundary consumed by the orchestrator.
type Poster interface {
	CreateTask(ctx context.Context, targetURL, content string, kind model.TaskKind, upvotes int) (posting.TaskResult, error)
	CancelTask(ctx context.Context, externalID string) error
}

// SubmitResult reports the outcome for one draft in a submit run.
type SubmitResult struct {
	DraftID string `json:"draft_id"`
	TaskID  string `json:"task_id,omitempty"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Orchestrator owns draft and task transitions from submission onward.
type Orchestrator struct {
	store  *storage.Store
	poster Poster
	log    *zap.Logger
}

func New(store *storage.Store, poster Poster, log *zap.Logger) *Orchestrator {
	return &Orchestrator{store: store, poster: poster, log: log}
}

// Submit sends every approved draft of the project to the posting service.
// A posting failure for one draft leaves it approved and eligible for the
// next run; the rest of the batch proceeds.
func (o *Orchestrator) Submit(ctx context.Context, project string, upvotes int) ([]SubmitResult, error) {
	drafts, err := o.store.ApprovedDrafts(ctx, project)
	if err != nil {
		return nil, err
	}
	results := make([]SubmitResult, 0, len(drafts))
	for _, d := range drafts {
		r := o.submitOne(ctx, d, upvotes)
		results = append(results, r)
		if !r.OK && r.Error == breaker.ErrOpen.Error() {
			// posting dependency is down; the rest of the batch would fail
			// fast the same way, report them untouched
			o.log.Warn("submit: posting circuit open, stopping batch", zap.String("project", project))
			break
		}
	}
	return results, nil
}

func (o *Orchestrator) submitOne(ctx context.Context, d model.Draft, upvotes int) SubmitResult {
	item, err := o.store.GetItem(ctx, d.ItemID)
	if err != nil {
		return SubmitResult{DraftID: d.ID, Error: fmt.Sprintf("load item: %v", err)}
	}
	created, err := o.poster.CreateTask(ctx, item.URL, d.Body, model.TaskKindComment, upvotes)
	if err != nil {
		o.log.Error("submit: create task failed", zap.String("draft", d.ID), zap.Error(err))
		return SubmitResult{DraftID: d.ID, Error: err.Error()}
	}
	reqSnapshot, _ := json.Marshal(map[string]any{
		"target_url": item.URL,
		"content":    d.Body,
		"kind":       model.TaskKindComment,
		"upvotes":    upvotes,
	})
	task := &model.PostingTask{
		ID:              uuid.New().String(),
		DraftID:         &d.ID,
		ExternalID:      created.ExternalID,
		Kind:            model.TaskKindComment,
		Status:          model.TaskStatusSubmitted,
		TargetURL:       item.URL,
		Content:         d.Body,
		RequestPayload:  string(reqSnapshot),
		ResponsePayload: created.Raw,
		Upvotes:         upvotes,
		SubmittedAt:     time.Now().UTC(),
	}
	if err := o.store.CreateTask(ctx, task); err != nil {
		o.log.Error("submit: persist task failed", zap.String("draft", d.ID), zap.Error(err))
		return SubmitResult{DraftID: d.ID, Error: err.Error()}
	}
	err = o.store.TransitionDraft(ctx, d.ID,
		[]model.DraftStatus{model.DraftStatusApproved},
		map[string]any{"status": model.DraftStatusSubmitting})
	if err != nil {
		// someone transitioned the draft mid-submit; the task stands and the
		// webhook will reconcile final state
		o.log.Warn("submit: draft transition conflict", zap.String("draft", d.ID), zap.Error(err))
		return SubmitResult{DraftID: d.ID, TaskID: task.ID, Error: err.Error()}
	}
	o.log.Info("submit: task created",
		zap.String("draft", d.ID),
		zap.String("task", task.ID),
		zap.String("external_id", task.ExternalID))
	return SubmitResult{DraftID: d.ID, TaskID: task.ID, OK: true}
}

// Cancel asks the posting service to cancel a submitted/assigned task, then
// moves the task to cancelled and the draft back to approved.
func (o *Orchestrator) Cancel(ctx context.Context, taskID string) error {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	switch task.Status {
	case model.TaskStatusSubmitted, model.TaskStatusAssigned:
	default:
		return storage.ErrConflict
	}
	if err := o.poster.CancelTask(ctx, task.ExternalID); err != nil {
		return err
	}
	err = o.store.TransitionTask(ctx, task.ID,
		[]model.TaskStatus{model.TaskStatusSubmitted, model.TaskStatusAssigned},
		map[string]any{"status": model.TaskStatusCancelled})
	if err != nil {
		return err
	}
	if task.DraftID != nil {
		err := o.store.TransitionDraft(ctx, *task.DraftID,
			[]model.DraftStatus{model.DraftStatusSubmitting},
			map[string]any{"status": model.DraftStatusApproved})
		if err != nil && !errors.Is(err, storage.ErrConflict) {
			return err
		}
	}
	o.log.Info("cancel: task cancelled", zap.String("task", task.ID))
	return nil
}
