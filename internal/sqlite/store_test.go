package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/repository"
)

func TestStore_InTxCommit(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	err := store.InTx(ctx, func(repos repository.Repositories) error {
		return repos.Strategies().Create(ctx, &strategy.Strategy{
			ID: "s1", Name: "Growth", NormalizedName: "growth",
		})
	})
	require.NoError(t, err)

	strat, err := store.Strategies().Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Growth", strat.Name)
}

func TestStore_InTxRollback(t *testing.T) {
	store := NewStore(NewTestDB(t))
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.InTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Strategies().Create(ctx, &strategy.Strategy{
			ID: "s1", Name: "Growth", NormalizedName: "growth",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The write inside the failed transaction must not be visible
	_, err = store.Strategies().Get(ctx, "s1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
