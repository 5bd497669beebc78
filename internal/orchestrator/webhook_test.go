package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoscout/internal/model"
)

// submitOne drives a draft through Submit so the webhook tests start from a
// realistic submitted task.
func (fx *fixture) submitted(t *testing.T) (*model.Draft, *model.PostingTask) {
	t.Helper()
	d := fx.seedApproved(t)
	_, err := fx.orch.Submit(context.Background(), "acme", 0)
	require.NoError(t, err)
	return d, fx.taskFor(t, d.ID)
}

func publishedEvent(externalID string) WebhookEvent {
	at := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	ev := WebhookEvent{
		ExternalTaskID: externalID,
		Status:         "published",
		PublishedAt:    &at,
	}
	ev.Submission = []struct {
		SubmissionURL string `json:"submissionUrl"`
	}{{SubmissionURL: "https://reddit.com/r/trailrunning/comments/abc/comment/xyz"}}
	return ev
}

func TestHandleEventPublished(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d, task := fx.submitted(t)

	require.NoError(t, fx.orch.HandleEvent(ctx, publishedEvent(task.ExternalID)))

	gotTask, err := fx.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPublished, gotTask.Status)
	require.NotNil(t, gotTask.PublishedAt)
	assert.Equal(t, 2025, gotTask.PublishedAt.UTC().Year())

	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPosted, gotDraft.Status)
	require.NotNil(t, gotDraft.PostedURL)
	assert.Equal(t, "https://reddit.com/r/trailrunning/comments/abc/comment/xyz", *gotDraft.PostedURL)
}

func TestHandleEventReplayIsNoOp(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d, task := fx.submitted(t)

	ev := publishedEvent(task.ExternalID)
	require.NoError(t, fx.orch.HandleEvent(ctx, ev))
	require.NoError(t, fx.orch.HandleEvent(ctx, ev))

	gotTask, err := fx.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPublished, gotTask.Status)
	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPosted, gotDraft.Status)
}

func TestHandleEventUnknownTaskDiscarded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d, task := fx.submitted(t)

	err := fx.orch.HandleEvent(ctx, WebhookEvent{ExternalTaskID: "no-such-task", Status: "published"})
	require.NoError(t, err)

	gotTask, err := fx.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusSubmitted, gotTask.Status)
	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusSubmitting, gotDraft.Status)
}

func TestHandleEventAppliesWhenTaskCommitsLate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	d := fx.seedApproved(t)
	require.NoError(t, fx.store.TransitionDraft(ctx, d.ID,
		[]model.DraftStatus{model.DraftStatusApproved},
		map[string]any{"status": model.DraftStatusSubmitting}))

	// the task row lands only after the event is already being processed;
	// the lookup retry has to bridge the gap
	go func() {
		time.Sleep(300 * time.Millisecond)
		_ = fx.store.CreateTask(context.Background(), &model.PostingTask{
			ID:         uuid.New().String(),
			DraftID:    &d.ID,
			ExternalID: "ext-late",
			Kind:       model.TaskKindComment,
			Status:     model.TaskStatusSubmitted,
		})
	}()

	require.NoError(t, fx.orch.HandleEvent(ctx, publishedEvent("ext-late")))

	task, err := fx.store.GetTaskByExternalID(ctx, "ext-late")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPublished, task.Status)
	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPosted, gotDraft.Status)
}

func TestHandleEventMissingIDDiscarded(t *testing.T) {
	fx := newFixture(t)
	assert.NoError(t, fx.orch.HandleEvent(context.Background(), WebhookEvent{Status: "published"}))
}

func TestHandleEventAssignedLeavesDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d, task := fx.submitted(t)

	require.NoError(t, fx.orch.HandleEvent(ctx, WebhookEvent{
		ExternalTaskID: task.ExternalID,
		Status:         "assigned",
	}))

	gotTask, err := fx.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusAssigned, gotTask.Status)
	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusSubmitting, gotDraft.Status)
}

func TestHandleEventRemovalAfterPublication(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d, task := fx.submitted(t)

	require.NoError(t, fx.orch.HandleEvent(ctx, publishedEvent(task.ExternalID)))
	require.NoError(t, fx.orch.HandleEvent(ctx, WebhookEvent{
		ExternalTaskID: task.ExternalID,
		Status:         "mod_removed",
	}))

	gotTask, err := fx.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusModRemoved, gotTask.Status)
	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusModRemoved, gotDraft.Status)
}

func TestHandleEventAfterTerminalIgnored(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d, task := fx.submitted(t)

	require.NoError(t, fx.orch.HandleEvent(ctx, WebhookEvent{
		ExternalTaskID: task.ExternalID,
		Status:         "cancelled",
	}))
	// a late published event must not resurrect the task
	require.NoError(t, fx.orch.HandleEvent(ctx, publishedEvent(task.ExternalID)))

	gotTask, err := fx.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, gotTask.Status)
	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusFailed, gotDraft.Status)
}

func TestHandleEventUnknownStatusStoredVerbatim(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	d, task := fx.submitted(t)

	require.NoError(t, fx.orch.HandleEvent(ctx, WebhookEvent{
		ExternalTaskID: task.ExternalID,
		Status:         "on_hold",
	}))

	gotTask, err := fx.store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatus("on_hold"), gotTask.Status)
	gotDraft, err := fx.store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusSubmitting, gotDraft.Status)
}

func TestEventTransitionTable(t *testing.T) {
	// every mapped task status must be reachable and every draft target valid
	for event, tr := range eventTransitions {
		assert.NotEmpty(t, tr.task, event)
	}
	assert.Equal(t, eventTransitions["published"], eventTransitions["completed"])
	assert.Equal(t, eventTransitions["removed"], eventTransitions["mod_removed"])
}
