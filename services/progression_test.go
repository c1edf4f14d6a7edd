package services

import (
	"math"
	"testing"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/stretchr/testify/require"
)

func TestNextLevelXP(t *testing.T) {
	require.EqualValues(t, 300, NextLevelXP(1))
	require.EqualValues(t, 600, NextLevelXP(2))
	require.EqualValues(t, 4500, NextLevelXP(8))

	// At the cap there is no next level.
	require.EqualValues(t, int64(math.MaxInt64), NextLevelXP(MaxLevel))
	require.EqualValues(t, int64(math.MaxInt64), NextLevelXP(MaxLevel+5))

	// Garbage level clamps to 1 instead of panicking.
	require.EqualValues(t, 300, NextLevelXP(0))
	require.EqualValues(t, 300, NextLevelXP(-3))
}

func TestLevelProgress(t *testing.T) {
	// Level 1 spans 100..300 total XP; 200 is the halfway point.
	prog := &models.UserProgress{Level: 1, TotalXP: 200}
	require.InDelta(t, 50.0, LevelProgress(prog), 0.01)

	prog = &models.UserProgress{Level: 1, TotalXP: 100}
	require.InDelta(t, 0.0, LevelProgress(prog), 0.01)

	prog = &models.UserProgress{Level: MaxLevel, TotalXP: 99999}
	require.EqualValues(t, 100, LevelProgress(prog))
}

func TestThresholdsAreStrictlyIncreasing(t *testing.T) {
	for i := 1; i < len(LevelXPThresholds); i++ {
		require.Greater(t, LevelXPThresholds[i], LevelXPThresholds[i-1])
	}
	require.Equal(t, 9, MaxLevel)
}
