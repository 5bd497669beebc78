package moderation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promoscout/internal/model"
	"promoscout/internal/storage"
)

func newTestQueue(t *testing.T) (*Queue, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	return NewQueue(store, zap.NewNop()), store
}

func seedDraft(t *testing.T, store *storage.Store, status model.DraftStatus) *model.Draft {
	t.Helper()
	d := &model.Draft{
		ID:           uuid.New().String(),
		ItemID:       uuid.New().String(),
		Project:      "acme",
		Body:         "generated reply",
		OriginalBody: "generated reply",
		Status:       status,
	}
	require.NoError(t, store.CreateDraft(context.Background(), d))
	return d
}

func TestApproveWithEditPreservesOriginalBody(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()
	d := seedDraft(t, store, model.DraftStatusDraft)

	edited := "tightened reply"
	require.NoError(t, q.Approve(ctx, d.ID, &edited))

	got, err := store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusApproved, got.Status)
	assert.Equal(t, "tightened reply", got.Body)
	assert.Equal(t, "generated reply", got.OriginalBody)
}

func TestApproveRequiresDraftStatus(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	for _, status := range []model.DraftStatus{
		model.DraftStatusApproved,
		model.DraftStatusRejected,
		model.DraftStatusSubmitting,
		model.DraftStatusPosted,
	} {
		d := seedDraft(t, store, status)
		assert.ErrorIs(t, q.Approve(ctx, d.ID, nil), storage.ErrConflict, string(status))
	}

	assert.ErrorIs(t, q.Approve(ctx, "missing", nil), storage.ErrNotFound)
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()
	d := seedDraft(t, store, model.DraftStatusDraft)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = q.Approve(ctx, d.ID, nil)
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, storage.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestRejectFromDraftOrApproved(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	fromDraft := seedDraft(t, store, model.DraftStatusDraft)
	require.NoError(t, q.Reject(ctx, fromDraft.ID, "off brand"))
	got, err := store.GetDraft(ctx, fromDraft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusRejected, got.Status)
	require.NotNil(t, got.RejectReason)
	assert.Equal(t, "off brand", *got.RejectReason)

	fromApproved := seedDraft(t, store, model.DraftStatusApproved)
	require.NoError(t, q.Reject(ctx, fromApproved.ID, ""))

	posted := seedDraft(t, store, model.DraftStatusPosted)
	assert.ErrorIs(t, q.Reject(ctx, posted.ID, "too late"), storage.ErrConflict)
}

func TestEditOnlyTouchesBody(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()
	d := seedDraft(t, store, model.DraftStatusDraft)

	require.NoError(t, q.Edit(ctx, d.ID, "rewritten"))
	got, err := store.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got.Body)
	assert.Equal(t, "generated reply", got.OriginalBody)
	assert.Equal(t, model.DraftStatusDraft, got.Status)

	approved := seedDraft(t, store, model.DraftStatusApproved)
	assert.ErrorIs(t, q.Edit(ctx, approved.ID, "x"), storage.ErrConflict)
}

func TestBulkApprovePartialFailure(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	ok1 := seedDraft(t, store, model.DraftStatusDraft)
	stuck := seedDraft(t, store, model.DraftStatusRejected)
	ok2 := seedDraft(t, store, model.DraftStatusDraft)

	results := q.BulkApprove(ctx, []string{ok1.ID, stuck.ID, ok2.ID, "missing"})
	require.Len(t, results, 4)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].OK)
	assert.False(t, results[3].OK)

	// the batch kept going past the conflict
	got, err := store.GetDraft(ctx, ok2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusApproved, got.Status)
}
