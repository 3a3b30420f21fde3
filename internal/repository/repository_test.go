package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/RealZimboGuy/flowstudio/internal/migrations"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testRepos struct {
	db          *sql.DB
	users       *UserRepository
	workflows   *WorkflowRepository
	shared      *SharedWorkflowRepository
	tags        *TagRepository
	credentials *CredentialsRepository
}

// newTestRepos migrates a fresh SQLite file and wires every repository on it.
func newTestRepos(t *testing.T) *testRepos {
	t.Helper()
	file := filepath.Join(t.TempDir(), "flowstudio-test.db")
	require.NoError(t, migrations.Up("sqllite3", "sqlite3://"+file))

	db, err := sql.Open("sqlite3", file)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	clock := core.FixedClock{At: testNow}
	roles := NewRoleRepository(DialectSQLite)
	tags := NewTagRepository(db, DialectSQLite, clock)
	workflows := NewWorkflowRepository(db, DialectSQLite, clock)
	return &testRepos{
		db:          db,
		users:       NewUserRepository(db, DialectSQLite, clock),
		workflows:   workflows,
		shared:      NewSharedWorkflowRepository(db, DialectSQLite, clock, workflows, roles, tags),
		tags:        tags,
		credentials: NewCredentialsRepository(db, DialectSQLite, clock, roles),
	}
}

func (r *testRepos) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, Password: "hash", Enabled: sql.NullBool{Bool: true, Valid: true}}
	_, err := r.users.Save(context.Background(), u)
	require.NoError(t, err)
	return u
}
