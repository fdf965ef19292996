package booking

import (
	"context"
	"sync"
	"testing"

	"github.com/ariebrainware/mindery/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticFetch(slots []slot.Slot) FetchFunc {
	return func(context.Context, uint, string) ([]slot.Slot, error) { return slots, nil }
}

func TestSlotLoader_StaleResultDiscarded(t *testing.T) {
	var l SlotLoader
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	slowSlots := []slot.Slot{{StartTime: "09:00", EndTime: "09:15"}}
	fastSlots := []slot.Slot{{StartTime: "13:00", EndTime: "13:15"}}

	var wg sync.WaitGroup
	var staleApplied bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleApplied = l.Load(ctx, 1, "2025-01-18", func(context.Context, uint, string) ([]slot.Slot, error) {
			close(started)
			<-release
			return slowSlots, nil
		})
	}()

	<-started
	_, applied := l.Load(ctx, 2, "2025-01-19", staticFetch(fastSlots))
	assert.True(t, applied)

	close(release)
	wg.Wait()

	assert.False(t, staleApplied, "an older fetch must not overwrite a newer one")
	cur := l.Current()
	assert.Equal(t, uint(2), cur.DoctorID)
	assert.Equal(t, "2025-01-19", cur.Date)
	assert.Equal(t, fastSlots, cur.Slots)
}

func TestSlotLoader_SelectAndSelection(t *testing.T) {
	var l SlotLoader
	ctx := context.Background()
	slots := slot.Generate("09:00", "10:00", 30)

	_, err := l.Selection("", "")
	assert.ErrorIs(t, err, ErrMissingSelection)

	l.Load(ctx, 4, "2025-01-18", staticFetch(slots))
	assert.ErrorIs(t, l.Select(slot.Slot{StartTime: "11:00", EndTime: "11:30"}), ErrInvalidSelection)
	require.NoError(t, l.Select(slots[1]))

	sel, err := l.Selection("notes", "offline")
	require.NoError(t, err)
	assert.Equal(t, Selection{DoctorID: 4, Date: "2025-01-18", Slot: slots[1], Notes: "notes", Mode: "offline"}, sel)

	// reloading the same pair keeps the choice
	l.Load(ctx, 4, "2025-01-18", staticFetch(slots))
	_, err = l.Selection("", "")
	assert.NoError(t, err)

	// switching date clears it
	l.Load(ctx, 4, "2025-01-19", staticFetch(slots))
	_, err = l.Selection("", "")
	assert.ErrorIs(t, err, ErrMissingSelection)
}

func TestSlotLoader_ConcurrentLoads(t *testing.T) {
	var l SlotLoader
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	appliedCount := 0
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, applied := l.Load(ctx, id, "2025-01-18", staticFetch([]slot.Slot{}))
			if applied {
				mu.Lock()
				appliedCount++
				mu.Unlock()
			}
		}(uint(i))
	}
	wg.Wait()

	assert.GreaterOrEqual(t, appliedCount, 1)
	assert.NotZero(t, l.Current().DoctorID)
}
