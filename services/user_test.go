package services

import (
	"context"
	"testing"

	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/services/repositories"
	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrCreateFirstWriteWins(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	first, err := env.users.ResolveOrCreate(ctx, dto.Identity{Subject: "uid-1", Email: "a@example.com", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.XP)
	assert.Equal(t, 1, first.Level)

	second, err := env.users.ResolveOrCreate(ctx, dto.Identity{Subject: "uid-1", Email: "changed@example.com", Name: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada", second.Name)
	require.NotNil(t, second.Email)
	assert.Equal(t, "a@example.com", *second.Email)
}

func TestResolveOrCreateEmailTakenBySomeoneElse(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	_, err := env.users.ResolveOrCreate(ctx, dto.Identity{Subject: "uid-1", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = env.users.ResolveOrCreate(ctx, dto.Identity{Subject: "uid-2", Email: "a@example.com"})
	assert.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestResolveOrCreateWithoutEmail(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	a, err := env.users.ResolveOrCreate(ctx, dto.Identity{Subject: "uid-1"})
	require.NoError(t, err)
	b, err := env.users.ResolveOrCreate(ctx, dto.Identity{Subject: "uid-2"})
	require.NoError(t, err)

	assert.Nil(t, a.Email)
	assert.NotEqual(t, a.ID, b.ID)

	_, err = env.users.ResolveOrCreate(ctx, dto.Identity{})
	assert.True(t, shared.IsKind(err, shared.KindAuthFailure))
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	user := env.createUser(t, "u1")
	env.saveVideo(t, user.ID, "vid00000001")
	_, err := env.progress.MarkCompleted(context.Background(), user.ID, "vid00000001")
	require.NoError(t, err)

	profile, err := env.users.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.UID)
	assert.Equal(t, "u1@example.com", profile.Email)
	assert.Equal(t, 10, profile.XP)
	assert.Equal(t, 90, profile.XPToNextLevel)
	assert.Equal(t, 1, profile.StreakCount)

	_, err = env.users.GetProfile(context.Background(), "missing")
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	repo := repositories.NewUserRepository(env.db)

	low := env.createUser(t, "low")
	high := env.createUser(t, "high")
	mid := env.createUser(t, "mid")
	for id, xp := range map[string]int{low.ID: 10, high.ID: 250, mid.ID: 40} {
		_, err := repo.AddXP(ctx, nil, id, xp)
		require.NoError(t, err)
	}

	board, err := env.users.Leaderboard(ctx, mid.ID, 0)
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)
	assert.Equal(t, high.ID, board.Entries[0].UserID)
	assert.Equal(t, 3, board.Entries[0].Level)
	assert.Equal(t, mid.ID, board.Entries[1].UserID)
	assert.Equal(t, 3, board.Entries[2].Rank)
	require.NotNil(t, board.CurrentUser)
	assert.Equal(t, 2, board.CurrentUser.Rank)

	top, err := env.users.Leaderboard(ctx, low.ID, 1)
	require.NoError(t, err)
	require.Len(t, top.Entries, 1)
	assert.Equal(t, high.ID, top.Entries[0].UserID)
	require.NotNil(t, top.CurrentUser)
	assert.Equal(t, low.ID, top.CurrentUser.UserID)
	assert.Equal(t, 3, top.CurrentUser.Rank)
}
