package pileapi_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pilecalc/pile-api"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// setupDB opens a private in memory sqlite database with every migration
// applied. goose keeps global state so callers must not run in parallel.
func setupDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := pileapi.OpenDB(ctx, pileapi.DBOptions{
		Driver: pileapi.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, pileapi.Migrate(ctx, db.DB, pileapi.DriverSQLite))
	return db
}

func setupRepo(t *testing.T, opts ...pileapi.UsersOption) (pileapi.RepositoryManager, *bun.DB) {
	t.Helper()
	db := setupDB(t)
	repo := pileapi.NewRepositoryManager(db, opts...)
	require.NoError(t, repo.Validate())
	return repo, db
}

func seedUser(t *testing.T, repo pileapi.RepositoryManager, email string) *pileapi.User {
	t.Helper()
	user, err := repo.Users().Create(context.Background(), &pileapi.User{
		FirstName:    "John",
		LastName:     "Smith",
		Company:      "Acme",
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuJ0c5wRNXxgp5HR3c3K0uZcyYc3ZqHZa",
	})
	require.NoError(t, err)
	return user
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
