package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"asthma_shield/internal/models"
	"asthma_shield/internal/repository/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs the repositories against a real sqlite file.
func TestRepositories_SQLite(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "shield.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	repos := NewRepository(conn)
	ctx := context.Background()

	t.Run("operators", func(t *testing.T) {
		id, err := repos.Operators.Create(ctx, "alice", "hash")
		require.NoError(t, err)
		assert.Positive(t, id)

		_, err = repos.Operators.Create(ctx, "alice", "other")
		assert.ErrorIs(t, err, ErrUserExists)

		u, err := repos.Operators.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "hash", u.PasswordHash)
		assert.False(t, u.CreatedAt.IsZero())

		_, err = repos.Operators.GetByUsername(ctx, "nobody")
		assert.True(t, errors.Is(err, ErrUserNotFound))
	})

	t.Run("events", func(t *testing.T) {
		base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		for i, typ := range []string{models.EventCommand, models.EventSequenceStarted, models.EventCommand} {
			require.NoError(t, repos.Events.Append(ctx, models.ShieldEvent{
				EventID:     string(rune('a' + i)),
				OccurredAt:  base.Add(time.Duration(i) * time.Minute),
				Type:        typ,
				Description: typ,
				Metadata:    map[string]any{"i": i},
			}))
		}

		all, err := repos.Events.List(ctx, time.Time{}, time.Time{}, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "a", all[0].EventID)

		cmds, err := repos.Events.List(ctx, base.Add(time.Minute), time.Time{}, "command")
		require.NoError(t, err)
		require.Len(t, cmds, 1)
		assert.Equal(t, "c", cmds[0].EventID)
		assert.True(t, cmds[0].OccurredAt.Equal(base.Add(2*time.Minute)))
	})
}
