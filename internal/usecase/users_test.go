package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgold/engine/internal/storage"
	"github.com/taskgold/engine/internal/store"
)

func TestGetOrCreateRegistersNewUser(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewStorage(store.NewMemory())
	require.NoError(t, err)

	svc := NewUserService(st)
	user, err := svc.GetOrCreate(ctx, 42, "alice", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, int64(7), user.ReferrerID)
	assert.Zero(t, user.Balance)
	assert.NotZero(t, user.Row)
}

// The referrer captured at registration is immutable: a later /start with
// a different payload does not change it.
func TestGetOrCreateKeepsExistingUser(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewStorage(store.NewMemory())
	require.NoError(t, err)

	svc := NewUserService(st)
	_, err = svc.GetOrCreate(ctx, 42, "alice", 7)
	require.NoError(t, err)
	require.NoError(t, st.UpdateBalance(ctx, 2, 100))

	user, err := svc.GetOrCreate(ctx, 42, "alice", 99)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ReferrerID)
	assert.Equal(t, int64(100), user.Balance)
	assert.Equal(t, 2, user.Row)
}

func TestGetOrCreateDropsSelfReferral(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewStorage(store.NewMemory())
	require.NoError(t, err)

	svc := NewUserService(st)
	user, err := svc.GetOrCreate(ctx, 42, "alice", 42)
	require.NoError(t, err)
	assert.Zero(t, user.ReferrerID)

	got, err := st.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, got.ReferrerID)
}
