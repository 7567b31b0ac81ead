package services

import (
	"context"
	"testing"
	"time"

	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphForIdleUser(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	user := env.createUser(t, "idle")

	graph, err := env.activity.Graph(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, graph, shared.DefaultActivityDays)

	assert.Equal(t, "2024-05-07", graph[0].Date)
	assert.Equal(t, "2024-05-20", graph[len(graph)-1].Date)
	for i, day := range graph {
		assert.Zero(t, day.ActivityCount)
		if i > 0 {
			assert.Less(t, graph[i-1].Date, day.Date)
		}
	}
}

func TestGraphCountsPerDay(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	user := env.createUser(t, "busy")
	ctx := context.Background()

	env.clock.Advance(-48 * time.Hour)
	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityImport, nil))
	env.clock.Advance(48 * time.Hour)
	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityImport, map[string]interface{}{"id": "x"}))
	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityVideoCompleted, nil))

	graph, err := env.activity.Graph(ctx, user.ID, 3)
	require.NoError(t, err)
	require.Len(t, graph, 3)
	assert.Equal(t, 1, graph[0].ActivityCount)
	assert.Equal(t, 0, graph[1].ActivityCount)
	assert.Equal(t, 2, graph[2].ActivityCount)

	capped, err := env.activity.Graph(ctx, user.ID, 365)
	require.NoError(t, err)
	assert.Len(t, capped, shared.MaxActivityDays)
}

func TestGraphUsesConfiguredTimezone(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	user := env.createUser(t, "tz")
	ctx := context.Background()

	// 23:30 UTC on the 19th is already the 20th in Ho Chi Minh City.
	loc := time.FixedZone("ICT", 7*60*60)
	clock := &testClock{now: time.Date(2024, 5, 19, 23, 30, 0, 0, time.UTC)}
	env.activity.setup(env.db, loc, clock.Now)

	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityImport, nil))

	graph, err := env.activity.Graph(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, graph, 2)
	assert.Equal(t, "2024-05-20", graph[1].Date)
	assert.Equal(t, 1, graph[1].ActivityCount)
}

func TestRecordAdvancesStreak(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	user := env.createUser(t, "streaker")
	ctx := context.Background()

	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityImport, nil))
	assert.Equal(t, 1, env.reloadUser(t, user.ID).StreakCount)

	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityImport, nil))
	assert.Equal(t, 1, env.reloadUser(t, user.ID).StreakCount)

	env.clock.Advance(24 * time.Hour)
	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityImport, nil))
	assert.Equal(t, 2, env.reloadUser(t, user.ID).StreakCount)

	env.clock.Advance(72 * time.Hour)
	require.NoError(t, env.activity.Record(ctx, nil, user.ID, shared.ActivityImport, nil))
	assert.Equal(t, 1, env.reloadUser(t, user.ID).StreakCount)
}

func TestActivityLocation(t *testing.T) {
	loc, err := activityLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = activityLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = activityLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}
