package repository

import (
	"context"
	"testing"

	"finchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository(2)

	empty, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, q := range []string{"q1", "q2", "q3"} {
		require.NoError(t, repo.Add(ctx, "alice", models.Exchange{Question: q}))
	}
	require.NoError(t, repo.Add(ctx, "bob", models.Exchange{Question: "other"}))

	list, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "q2", list[0].Question)
	assert.Equal(t, "q3", list[1].Question)

	list[0].Question = "mutated"
	again, _ := repo.List(ctx, "alice")
	assert.Equal(t, "q2", again[0].Question)
}

func TestMemoryHistoryRepository_Unbounded(t *testing.T) {
	repo := NewMemoryHistoryRepository(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Add(context.Background(), "alice", models.Exchange{}))
	}
	list, err := repo.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, list, 10)
}
