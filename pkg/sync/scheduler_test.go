package sync

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskGroupDrainAll(t *testing.T) {
	group := newTaskGroup()

	var counter atomic.Int32
	for i := 0; i < 50; i++ {
		group.Spawn(func() error {
			counter.Add(1)
			return nil
		})
	}
	require.Equal(t, 50, group.NumSpawned())

	errs := group.DrainAll()
	require.Empty(t, errs)
	require.Zero(t, group.NumSpawned())
	require.Equal(t, int32(50), counter.Load())
}

func TestTaskGroupCollectsErrors(t *testing.T) {
	group := newTaskGroup()

	boom := errors.New("boom")
	group.Spawn(func() error { return boom })
	group.Spawn(func() error { return nil })
	group.Spawn(func() error { return boom })

	errs := group.DrainAll()
	require.Len(t, errs, 2)
	for _, err := range errs {
		require.ErrorIs(t, err, boom)
	}
}

func TestTaskGroupWaitForChild(t *testing.T) {
	group := newTaskGroup()

	release := make(chan struct{})
	group.Spawn(func() error {
		<-release
		return nil
	})
	group.Spawn(func() error { return nil })

	// one child is done, the other still blocked
	require.NoError(t, group.WaitForChild())
	require.Equal(t, 1, group.NumSpawned())

	close(release)
	require.NoError(t, group.WaitForChild())
	require.Zero(t, group.NumSpawned())
}

func TestTaskGroupBoundedWindow(t *testing.T) {
	group := newTaskGroup()

	var inflight, peak atomic.Int32
	for i := 0; i < 100; i++ {
		group.Spawn(func() error {
			cur := inflight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			defer inflight.Add(-1)
			return nil
		})
		for group.NumSpawned() > 20 {
			require.NoError(t, group.WaitForChild())
		}
	}
	group.DrainAll()
	require.LessOrEqual(t, peak.Load(), int32(21))
}
