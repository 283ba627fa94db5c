package eventstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:", 0)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, testEvent(i)))
	}

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, ev := range events {
		require.Equal(t, fmt.Sprintf("event-%d", i), ev.Title)
	}

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, "event-4", latest.Title)
}

func TestSQLiteStore_CapacityTrim(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:", 10)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 15; i++ {
		require.NoError(t, store.Append(ctx, testEvent(i)))
	}

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 10)
	require.Equal(t, "event-5", events[0].Title)
	require.Equal(t, "event-14", events[9].Title)
}

func TestSQLiteStore_EmptyLatestIsNil(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:", 0)
	require.NoError(t, err)
	defer store.Close()

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Nil(t, latest)
}
