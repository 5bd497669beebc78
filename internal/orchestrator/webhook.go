package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"promoscout/internal/model"
	"promoscout/internal/storage"
)

// WebhookEvent is the inbound payload from the posting service.
type WebhookEvent struct {
	ExternalTaskID string     `json:"externalTaskId"`
	Status         string     `json:"status"`
	Content        string     `json:"content,omitempty"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	Submission     []struct {
		SubmissionURL string `json:"submissionUrl"`
	} `json:"submission,omitempty"`
	Price float64 `json:"price,omitempty"`
}

// transition is one row of the webhook state table: event status to
// (task status, draft status). draft empty means the draft is untouched.
type transition struct {
	task  model.TaskStatus
	draft model.DraftStatus
}

// eventTransitions centralizes the external-event mapping so it is testable
// in one place instead of scattered across conditionals.
var eventTransitions = map[string]transition{
	"published":       {task: model.TaskStatusPublished, draft: model.DraftStatusPosted},
	"completed":       {task: model.TaskStatusPublished, draft: model.DraftStatusPosted},
	"assigned":        {task: model.TaskStatusAssigned},
	"in_progress":     {task: model.TaskStatusAssigned},
	"mod_removed":     {task: model.TaskStatusModRemoved, draft: model.DraftStatusModRemoved},
	"removed":         {task: model.TaskStatusModRemoved, draft: model.DraftStatusModRemoved},
	"content_removed": {task: model.TaskStatusModRemoved, draft: model.DraftStatusModRemoved},
	"cancelled":       {task: model.TaskStatusCancelled, draft: model.DraftStatusFailed},
	"deleted":         {task: model.TaskStatusCancelled, draft: model.DraftStatusFailed},
	"user_deleted":    {task: model.TaskStatusCancelled, draft: model.DraftStatusFailed},
}

// HandleEvent applies one webhook event. It is idempotent (replaying an event
// is a no-op) and never treats an unknown task id as an error; the HTTP layer
// acknowledges regardless. The lookup retries briefly because the event can
// arrive before the submit call has committed its task row.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev WebhookEvent) error {
	if ev.ExternalTaskID == "" {
		o.log.Warn("webhook: event without task id, discarding")
		return nil
	}

	task, err := o.lookupTask(ctx, ev.ExternalTaskID)
	if errors.Is(err, storage.ErrNotFound) {
		o.log.Warn("webhook: unknown task id, discarding", zap.String("external_id", ev.ExternalTaskID))
		return nil
	}
	if err != nil {
		return err
	}

	if task.Status.Terminal() {
		o.log.Info("webhook: task already terminal, ignoring",
			zap.String("task", task.ID),
			zap.String("status", string(task.Status)),
			zap.String("event", ev.Status))
		return nil
	}

	next, known := eventTransitions[ev.Status]
	if !known {
		// store the foreign status verbatim rather than guessing a mapping;
		// the draft stays untouched
		o.log.Warn("webhook: unrecognized status, storing verbatim",
			zap.String("task", task.ID), zap.String("status", ev.Status))
		return o.store.TransitionTask(ctx, task.ID,
			[]model.TaskStatus{task.Status},
			map[string]any{"status": model.TaskStatus(ev.Status)})
	}
	if task.Status == next.task {
		// replayed event
		return nil
	}

	updates := map[string]any{"status": next.task}
	if next.task == model.TaskStatusPublished {
		published := time.Now().UTC()
		if ev.PublishedAt != nil {
			published = ev.PublishedAt.UTC()
		}
		updates["published_at"] = published
	}
	err = o.store.TransitionTask(ctx, task.ID, []model.TaskStatus{task.Status}, updates)
	if errors.Is(err, storage.ErrConflict) {
		// a concurrent delivery of the same event won the race
		return nil
	}
	if err != nil {
		return err
	}

	if next.draft != "" && task.DraftID != nil {
		if err := o.advanceDraft(ctx, *task.DraftID, next.draft, ev); err != nil {
			return err
		}
	}
	o.log.Info("webhook: event applied",
		zap.String("task", task.ID),
		zap.String("event", ev.Status),
		zap.String("task_status", string(next.task)))
	return nil
}

func (o *Orchestrator) advanceDraft(ctx context.Context, draftID string, to model.DraftStatus, ev WebhookEvent) error {
	updates := map[string]any{"status": to}
	var from []model.DraftStatus
	switch to {
	case model.DraftStatusPosted:
		from = []model.DraftStatus{model.DraftStatusSubmitting, model.DraftStatusApproved}
		if len(ev.Submission) > 0 && ev.Submission[0].SubmissionURL != "" {
			updates["posted_url"] = ev.Submission[0].SubmissionURL
		}
	case model.DraftStatusModRemoved:
		// removal usually lands after publication
		from = []model.DraftStatus{model.DraftStatusSubmitting, model.DraftStatusPosted}
	default:
		from = []model.DraftStatus{model.DraftStatusSubmitting}
	}
	err := o.store.TransitionDraft(ctx, draftID, from, updates)
	if errors.Is(err, storage.ErrConflict) {
		// draft already advanced by an earlier delivery
		return nil
	}
	return err
}

// lookupTask resolves the external id, retrying briefly in case the webhook
// outran the submit transaction.
func (o *Orchestrator) lookupTask(ctx context.Context, externalID string) (*model.PostingTask, error) {
	var task *model.PostingTask
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(200*time.Millisecond), 4), ctx)
	err := backoff.Retry(func() error {
		t, err := o.store.GetTaskByExternalID(ctx, externalID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return backoff.Permanent(err)
		}
		task = t
		return nil
	}, bo)
	return task, err
}
