package collector

import (
	"context"
	"testing"
	"time"

	"github.com/listenupapp/memopack/internal/blobstore"
	"github.com/listenupapp/memopack/internal/domain"
	"github.com/listenupapp/memopack/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGetDelete(t *testing.T) {
	var active []int
	r := NewRegistry(nil, nil, WithSessionCounter(func(n int) { active = append(active, n) }))

	c, err := r.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	require.NoError(t, r.Delete(c.ID()))
	assert.Zero(t, r.Len())

	_, err = r.Get(c.ID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.True(t, errors.Is(r.Delete(c.ID()), errors.ErrNotFound))

	assert.Equal(t, []int{1, 0}, active)
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r := NewRegistry(nil, nil)

	a, err := r.Create()
	require.NoError(t, err)
	b, err := r.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	require.NoError(t, a.SetText(a.Snapshot()[0].ID, "only in a"))
	assert.Empty(t, b.Snapshot()[0].Text)
}

func TestRegistry_Sweep(t *testing.T) {
	blobs := setupBlobs(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	r := NewRegistry(blobs, nil, WithIdleTTL(time.Hour), WithNow(clock))

	stale, err := r.Create()
	require.NoError(t, err)
	require.NoError(t, stale.SetFiles(stale.Snapshot()[0].ID, []domain.File{domain.NewBytesFile("a.png", []byte("A"))}))

	now = now.Add(45 * time.Minute)
	fresh, err := r.Create()
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, r.Sweep())

	_, err = r.Get(stale.ID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = r.Get(fresh.ID())
	assert.NoError(t, err)

	n, err := blobs.Count(blobstore.SessionPrefix(stale.ID()))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistry_GetKeepsSessionAlive(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(nil, nil, WithIdleTTL(time.Hour), WithNow(func() time.Time { return now }))

	c, err := r.Create()
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	_, err = r.Get(c.ID())
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	assert.Zero(t, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Shutdown(t *testing.T) {
	r := NewRegistry(setupBlobs(t), nil)
	for range 3 {
		_, err := r.Create()
		require.NoError(t, err)
	}

	require.NoError(t, r.Shutdown())
	assert.Zero(t, r.Len())
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	r := NewRegistry(nil, nil, WithIdleTTL(time.Nanosecond))
	_, err := r.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
