package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGormStoreLockStripe(t *testing.T) {
	store := NewGormBattleStore(nil)

	l1 := store.lockFor("battle-1")
	require.Same(t, l1, store.lockFor("battle-1"))
	require.NotSame(t, l1, store.lockFor("battle-2"))

	// Completion drops the entry so the stripe does not grow with every
	// battle ever fought.
	store.dropLock("battle-1")
	store.mu.Lock()
	_, present := store.locks["battle-1"]
	remaining := len(store.locks)
	store.mu.Unlock()
	require.False(t, present)
	require.Equal(t, 1, remaining)

	// Dropping an id that was never locked is a no-op.
	store.dropLock("battle-3")
}
