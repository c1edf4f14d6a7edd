package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/Lyzus243/Studyrpg2/models"

	"github.com/stretchr/testify/require"
)

type fakeCrediter struct {
	mu        sync.Mutex
	xp        map[string]int64
	sp        map[string]int
	wins      map[string]int
	failUsers map[string]bool
}

func newFakeCrediter() *fakeCrediter {
	return &fakeCrediter{
		xp:        make(map[string]int64),
		sp:        make(map[string]int),
		wins:      make(map[string]int),
		failUsers: make(map[string]bool),
	}
}

func (c *fakeCrediter) AwardXP(userID string, xp int64, reason string) (*models.UserProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failUsers[userID] {
		return nil, errors.New("progress record not found")
	}
	c.xp[userID] += xp
	return &models.UserProgress{ExternalUserID: userID, TotalXP: c.xp[userID]}, nil
}

func (c *fakeCrediter) AddSkillPoints(userID string, points int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sp[userID] += points
	return nil
}

func (c *fakeCrediter) RecordBattleWon(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wins[userID]++
	return nil
}

type fakeGranter struct {
	mu     sync.Mutex
	grants map[string][]string
}

func newFakeGranter() *fakeGranter {
	return &fakeGranter{grants: make(map[string][]string)}
}

func (g *fakeGranter) GrantItems(userID, battleID string, items []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants[userID] = append(g.grants[userID], items...)
	return nil
}

func completedBattle(t *testing.T, participants *fakeParticipants, userIDs ...string) *models.GroupBossBattle {
	t.Helper()
	battle := &models.GroupBossBattle{
		ID:                "battle-1",
		GroupID:           "group-1",
		Title:             "Final Exam Boss",
		IsCompleted:       true,
		Passed:            true,
		RewardXP:          150,
		RewardSkillPoints: 3,
		RewardItems:       `["health_potion","focus_charm"]`,
	}
	for _, userID := range userIDs {
		require.NoError(t, participants.Add(battle.ID, userID))
	}
	return battle
}

func TestDistributeCreditsEveryParticipant(t *testing.T) {
	participants := newFakeParticipants()
	crediter := newFakeCrediter()
	granter := newFakeGranter()
	battle := completedBattle(t, participants, "user-1", "user-2", "user-3")

	d := NewRewardDistributor(participants, crediter, granter)
	require.NoError(t, d.Distribute(battle))

	for _, userID := range []string{"user-1", "user-2", "user-3"} {
		require.EqualValues(t, 150, crediter.xp[userID])
		require.Equal(t, 3, crediter.sp[userID])
		require.Equal(t, 1, crediter.wins[userID])
		require.Equal(t, []string{"health_potion", "focus_charm"}, granter.grants[userID])
	}
}

func TestDistributeContinuesPastFailures(t *testing.T) {
	participants := newFakeParticipants()
	crediter := newFakeCrediter()
	crediter.failUsers["user-2"] = true
	granter := newFakeGranter()
	battle := completedBattle(t, participants, "user-1", "user-2", "user-3")

	d := NewRewardDistributor(participants, crediter, granter)
	require.NoError(t, d.Distribute(battle))

	// user-2's XP credit failed; the others are untouched by it.
	require.EqualValues(t, 150, crediter.xp["user-1"])
	require.EqualValues(t, 0, crediter.xp["user-2"])
	require.EqualValues(t, 150, crediter.xp["user-3"])
	require.Empty(t, granter.grants["user-2"])
	require.NotEmpty(t, granter.grants["user-3"])
}

func TestDistributeNoItems(t *testing.T) {
	participants := newFakeParticipants()
	crediter := newFakeCrediter()
	granter := newFakeGranter()

	battle := completedBattle(t, participants, "user-1")
	battle.RewardItems = "[]"

	d := NewRewardDistributor(participants, crediter, granter)
	require.NoError(t, d.Distribute(battle))

	require.EqualValues(t, 150, crediter.xp["user-1"])
	require.Empty(t, granter.grants["user-1"])
}

func TestRewardItemListTolerance(t *testing.T) {
	b := &models.GroupBossBattle{RewardItems: `["a","b"]`}
	require.Equal(t, []string{"a", "b"}, b.RewardItemList())

	b.RewardItems = ""
	require.Empty(t, b.RewardItemList())

	b.RewardItems = "{not json"
	require.Empty(t, b.RewardItemList())
}
