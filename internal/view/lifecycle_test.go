package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		loading bool
		count   int
		err     error
		want    State
	}{
		{"loading wins", true, 3, nil, StateLoading},
		{"loading with error", true, 0, boom, StateLoading},
		{"empty", false, 0, nil, StateEmpty},
		{"error degrades to empty", false, 0, boom, StateEmpty},
		{"error with stale count is still empty", false, 2, boom, StateEmpty},
		{"populated", false, 2, nil, StatePopulated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.loading, tt.count, tt.err))
		})
	}
}

func TestFetch_ZeroValueIsLoading(t *testing.T) {
	var f Fetch[int]
	snap := f.Snapshot()
	assert.Equal(t, Idle, snap.Phase)
	assert.True(t, snap.Loading())
	assert.True(t, f.Wait(context.Background(), 0), "nothing to wait for")
}

func TestFetch_SucceedsAndFails(t *testing.T) {
	var ok Fetch[string]
	ok.Start(context.Background(), "ok", func(context.Context) (string, error) { return "v", nil })
	require.True(t, ok.Wait(context.Background(), time.Second))
	assert.Equal(t, Snapshot[string]{Phase: Succeeded, Data: "v"}, ok.Snapshot())

	var bad Fetch[string]
	boom := errors.New("boom")
	bad.Start(context.Background(), "bad", func(context.Context) (string, error) { return "partial", boom })
	require.True(t, bad.Wait(context.Background(), time.Second))
	snap := bad.Snapshot()
	assert.Equal(t, Failed, snap.Phase)
	assert.Empty(t, snap.Data, "failed fetches hold no data")
	assert.ErrorIs(t, snap.Err, boom)
}

func TestFetch_StaleResultIsDropped(t *testing.T) {
	var f Fetch[string]
	release := make(chan struct{})
	f.Start(context.Background(), "slow", func(context.Context) (string, error) {
		<-release
		return "stale", nil
	})
	f.Start(context.Background(), "fast", func(context.Context) (string, error) { return "fresh", nil })
	require.True(t, f.Wait(context.Background(), time.Second))

	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "fresh", f.Snapshot().Data)
}

func TestFetch_WaitTimesOut(t *testing.T) {
	var f Fetch[int]
	release := make(chan struct{})
	defer close(release)
	f.Start(context.Background(), "hung", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	assert.False(t, f.Wait(context.Background(), 10*time.Millisecond))
	assert.Equal(t, Loading, f.Snapshot().Phase)
}

func TestFetch_SurvivesCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var f Fetch[int]
	f.Start(ctx, "detached", func(ctx context.Context) (int, error) {
		cancel()
		time.Sleep(5 * time.Millisecond)
		return 7, ctx.Err()
	})
	require.True(t, f.Wait(context.Background(), time.Second))
	assert.Equal(t, 7, f.Snapshot().Data)
}

func TestFetch_UpdateOnlyWhenLoaded(t *testing.T) {
	var f Fetch[int]
	assert.False(t, f.Update(func(n int) int { return n + 1 }))

	f.Start(context.Background(), "n", func(context.Context) (int, error) { return 1, nil })
	require.True(t, f.Wait(context.Background(), time.Second))
	assert.True(t, f.Update(func(n int) int { return n + 1 }))
	assert.Equal(t, 2, f.Snapshot().Data)
}

func TestFetch_UpdateWhileLoadingAppliesOnSuccess(t *testing.T) {
	var f Fetch[int]
	release := make(chan struct{})
	f.Start(context.Background(), "n", func(context.Context) (int, error) {
		<-release
		return 10, nil
	})

	assert.True(t, f.Update(func(n int) int { return n + 1 }))
	assert.Equal(t, Loading, f.Snapshot().Phase)
	close(release)
	require.True(t, f.Wait(context.Background(), time.Second))
	assert.Equal(t, Snapshot[int]{Phase: Succeeded, Data: 11}, f.Snapshot())
}

func TestFetch_UpdateWhileLoadingDroppedOnFailure(t *testing.T) {
	var f Fetch[int]
	release := make(chan struct{})
	boom := errors.New("boom")
	f.Start(context.Background(), "n", func(context.Context) (int, error) {
		<-release
		return 0, boom
	})

	f.Update(func(n int) int { return n + 1 })
	close(release)
	require.True(t, f.Wait(context.Background(), time.Second))
	snap := f.Snapshot()
	assert.Equal(t, Failed, snap.Phase)
	assert.ErrorIs(t, snap.Err, boom)
}

func TestFetch_OverrideWhileLoadingKeepsFetchedData(t *testing.T) {
	var f Fetch[[]string]
	release := make(chan struct{})
	f.Start(context.Background(), "list", func(context.Context) ([]string, error) {
		<-release
		return []string{"old1", "old2"}, nil
	})

	f.Override(func(cur []string) []string { return append([]string{"new"}, cur...) })
	assert.True(t, f.Snapshot().Loading())
	close(release)
	require.True(t, f.Wait(context.Background(), time.Second))

	snap := f.Snapshot()
	assert.Equal(t, Succeeded, snap.Phase)
	assert.Equal(t, []string{"new", "old1", "old2"}, snap.Data)
}

func TestFetch_OverrideWhileLoadingSurvivesFailure(t *testing.T) {
	var f Fetch[[]string]
	release := make(chan struct{})
	f.Start(context.Background(), "list", func(context.Context) ([]string, error) {
		<-release
		return nil, errors.New("down")
	})

	f.Override(func(cur []string) []string { return append([]string{"new"}, cur...) })
	close(release)
	require.True(t, f.Wait(context.Background(), time.Second))

	snap := f.Snapshot()
	assert.Equal(t, Succeeded, snap.Phase)
	assert.NoError(t, snap.Err)
	assert.Equal(t, []string{"new"}, snap.Data)
}

func TestFetch_RestartDropsQueuedEdits(t *testing.T) {
	var f Fetch[int]
	release := make(chan struct{})
	f.Start(context.Background(), "slow", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	f.Override(func(n int) int { return n + 100 })

	f.Start(context.Background(), "fresh", func(context.Context) (int, error) { return 5, nil })
	require.True(t, f.Wait(context.Background(), time.Second))
	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 5, f.Snapshot().Data)
}
