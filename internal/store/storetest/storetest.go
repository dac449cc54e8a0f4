// Package storetest holds behaviour every store.Store driver must share.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/toychat/internal/store"
)

// Run exercises a driver. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("unknown room", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		_, err := st.GetRoom(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = st.ListMessages(ctx, "ghost", 0)
		assert.ErrorIs(t, err, store.ErrNotFound)

		err = st.SaveMessage(ctx, &store.Message{RoomID: "ghost", Sender: "ann", Body: "hi", CreatedAt: time.Now().UTC()})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ensure room is idempotent", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		require.NoError(t, st.EnsureRoom(ctx, "toy-1"))
		first, err := st.GetRoom(ctx, "toy-1")
		require.NoError(t, err)
		require.NoError(t, st.EnsureRoom(ctx, "toy-1"))
		second, err := st.GetRoom(ctx, "toy-1")
		require.NoError(t, err)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

		msgs, err := st.ListMessages(ctx, "toy-1", 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("messages come back in order", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.EnsureRoom(ctx, "toy-1"))
		require.NoError(t, st.EnsureRoom(ctx, "toy-10"))

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			msg := &store.Message{
				RoomID:    "toy-1",
				Sender:    "ann",
				Body:      fmt.Sprintf("m%d", i),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, st.SaveMessage(ctx, msg))
			assert.NotEmpty(t, msg.ID)
		}
		require.NoError(t, st.SaveMessage(ctx, &store.Message{RoomID: "toy-10", Sender: "bob", Body: "other", CreatedAt: base}))

		msgs, err := st.ListMessages(ctx, "toy-1", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 5)
		for i, msg := range msgs {
			assert.Equal(t, fmt.Sprintf("m%d", i), msg.Body)
			assert.Equal(t, "toy-1", msg.RoomID)
			assert.Equal(t, "ann", msg.Sender)
			assert.True(t, base.Add(time.Duration(i)*time.Second).Equal(msg.CreatedAt), "created_at of %s", msg.Body)
		}

		limited, err := st.ListMessages(ctx, "toy-1", 2)
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, "m3", limited[0].Body)
		assert.Equal(t, "m4", limited[1].Body)
	})
}
