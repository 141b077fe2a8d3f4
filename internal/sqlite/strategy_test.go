package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/repository"
)

func TestStrategyRepository_CreateAndGet(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	strat := &strategy.Strategy{
		ID:             "s1",
		Name:           "Customer Experience",
		NormalizedName: "customer experience",
	}
	require.NoError(t, store.Strategies().Create(ctx, strat))

	retrieved, err := store.Strategies().Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Customer Experience", retrieved.Name)
	require.False(t, retrieved.Deprecated)

	_, err = store.Strategies().Get(ctx, "nonexistent")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStrategyRepository_GetByName(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Strategies().Create(ctx, &strategy.Strategy{
		ID:             "s1",
		Name:           "Growth",
		NormalizedName: "growth",
	}))

	retrieved, err := store.Strategies().GetByName(ctx, "growth")
	require.NoError(t, err)
	require.Equal(t, "s1", retrieved.ID)

	_, err = store.Strategies().GetByName(ctx, "efficiency")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStrategyRepository_NormalizedNameUnique(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Strategies().Create(ctx, &strategy.Strategy{
		ID: "s1", Name: "Growth", NormalizedName: "growth",
	}))

	err := store.Strategies().Create(ctx, &strategy.Strategy{
		ID: "s2", Name: "GROWTH", NormalizedName: "growth",
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestStrategyRepository_SetDeprecated(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Strategies().Create(ctx, &strategy.Strategy{
		ID: "s1", Name: "Growth", NormalizedName: "growth",
	}))

	require.NoError(t, store.Strategies().SetDeprecated(ctx, "s1", true))

	retrieved, err := store.Strategies().Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, retrieved.Deprecated)

	err = store.Strategies().SetDeprecated(ctx, "nonexistent", true)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStrategyRepository_List(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Strategies().Create(ctx, &strategy.Strategy{
		ID: "s1", Name: "Growth", NormalizedName: "growth",
	}))
	require.NoError(t, store.Strategies().Create(ctx, &strategy.Strategy{
		ID: "s2", Name: "Efficiency", NormalizedName: "efficiency",
	}))

	strategies, err := store.Strategies().List(ctx)
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	require.Equal(t, "Efficiency", strategies[0].Name)
	require.Equal(t, "Growth", strategies[1].Name)
}
