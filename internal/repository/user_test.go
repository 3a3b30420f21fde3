package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_SaveAndFind(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	u := &domain.User{
		Username: "alice",
		Password: "hash",
		ApiKey:   sql.NullString{String: "key-1", Valid: true},
		Enabled:  sql.NullBool{Bool: true, Valid: true},
	}
	id, err := repos.users.Save(ctx, u)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, id, u.ID)

	byName, err := repos.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, id, byName.ID)
	assert.True(t, byName.Created.Valid)

	byKey, err := repos.users.FindByApiKey(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, "alice", byKey.Username)

	missing, err := repos.users.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repos.users.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserRepository_Sessions(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	u := repos.user(t, "bob")

	require.NoError(t, repos.users.UpdateSession(ctx, u.ID, "sess-1", testNow.Add(time.Hour)))

	found, err := repos.users.FindBySessionID(ctx, "sess-1", testNow)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)

	expired, err := repos.users.FindBySessionID(ctx, "sess-1", testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, expired)

	require.NoError(t, repos.users.ClearSessionBySessionID(ctx, "sess-1"))
	cleared, err := repos.users.FindBySessionID(ctx, "sess-1", testNow)
	require.NoError(t, err)
	assert.Nil(t, cleared)
}

func TestUserRepository_DeleteRemovesShares(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	u := repos.user(t, "carol")

	wf, err := domain.NewWorkflow(domain.WorkflowFields{Name: "owned"})
	require.NoError(t, err)
	_, err = repos.shared.SaveWithOwner(ctx, wf, u)
	require.NoError(t, err)

	require.NoError(t, repos.users.DeleteById(ctx, u.ID))

	gone, err := repos.users.FindById(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var shares int
	require.NoError(t, repos.db.QueryRow(`SELECT COUNT(*) FROM shared_workflow`).Scan(&shares))
	assert.Zero(t, shares)
}
