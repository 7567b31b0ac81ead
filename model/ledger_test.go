package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	cases := map[int]int{0: 1, 99: 1, 100: 2, 199: 2, 250: 3, 1000: 11}
	for xp, level := range cases {
		assert.Equal(t, level, LevelForXP(xp), "xp=%d", xp)
	}
}

func TestApplyXP(t *testing.T) {
	profile := UserProfile{XP: 95, Level: 1}

	next, err := ApplyXP(profile, 10)
	require.NoError(t, err)
	assert.Equal(t, 105, next.XP)
	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 95, profile.XP, "input must not be mutated")

	same, err := ApplyXP(next, 0)
	require.NoError(t, err)
	assert.Equal(t, next, same)

	_, err = ApplyXP(next, -5)
	assert.Error(t, err)
}

func TestApplyXPIsMonotonic(t *testing.T) {
	profile := UserProfile{Level: 1}
	for _, delta := range []int{10, 5, 0, 40, 45, 100, 3} {
		next, err := ApplyXP(profile, delta)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next.XP, profile.XP)
		assert.GreaterOrEqual(t, next.Level, profile.Level)
		assert.Equal(t, next.XP/100+1, next.Level)
		profile = next
	}
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPToNextLevel(0))
	assert.Equal(t, 5, XPToNextLevel(95))
	assert.Equal(t, 100, XPToNextLevel(200))
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	earlierToday := now.Add(-2 * time.Hour)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -7)

	assert.Equal(t, 1, NextStreak(0, nil, now))
	assert.Equal(t, 4, NextStreak(4, &earlierToday, now))
	assert.Equal(t, 5, NextStreak(4, &yesterday, now))
	assert.Equal(t, 1, NextStreak(4, &lastWeek, now))
}

func TestNewQuizRequiresSingleTarget(t *testing.T) {
	q, err := NewQuiz("u1", Target{Kind: TargetVideo, ID: "v1"}, []Question{{Question: "q", Options: []string{"a"}, Answer: "a"}})
	require.NoError(t, err)
	require.NotNil(t, q.VideoID)
	assert.Nil(t, q.PlaylistID)

	target, ok := q.Target()
	require.True(t, ok)
	assert.Equal(t, TargetVideo, target.Kind)
	assert.Equal(t, "v1", target.ID)
	assert.Len(t, q.Questions.Data(), 1)

	_, err = NewQuiz("u1", Target{Kind: "course", ID: "c1"}, nil)
	assert.Error(t, err)

	_, err = NewQuiz("u1", Target{Kind: TargetPlaylist}, nil)
	assert.Error(t, err)
}
