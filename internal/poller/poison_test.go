package poller_test

import (
	"context"
	"testing"

	"ideagraph/internal/poller"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackpressureAdminClearsAndRelistsPoisonedSource(t *testing.T) {
	poisonStore := newFakePoison()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := poisonStore.RecordFailure(ctx, "mail", "m1", "retry exhausted")
		require.NoError(t, err)
	}

	admin := poller.NewBackpressureAdmin(poisonStore)
	poisoned, err := admin.ListPoisoned(ctx, "mail")
	require.NoError(t, err)
	require.Len(t, poisoned, 1)

	require.NoError(t, admin.Clear(ctx, "mail", "m1"))
	poisoned, err = admin.ListPoisoned(ctx, "mail")
	require.NoError(t, err)
	assert.Empty(t, poisoned)
}
