package breaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, recovery time.Duration) (*Breaker, *time.Time) {
	b := New("test", threshold, recovery)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestTripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenAfterRecovery(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	*now = now.Add(59 * time.Second)
	assert.False(t, b.Allow())

	*now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	// only one probe is admitted
	assert.False(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*now = now.Add(2 * time.Minute)
	require.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	// recovery clock restarted
	*now = now.Add(30 * time.Second)
	assert.False(t, b.Allow())
	*now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())
}

func TestDoFailsFastWhenOpen(t *testing.T) {
	b, _ := newTestBreaker(1, time.Minute)

	callErr := errors.New("boom")
	err := b.Do(func() error { return callErr })
	require.ErrorIs(t, err, callErr)

	called := false
	err = b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestConcurrentCallersConsistent(t *testing.T) {
	b, _ := newTestBreaker(50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				b.RecordFailure()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, StateOpen, b.State())
}
