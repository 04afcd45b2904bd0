package repositories

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/db"
)

// Repository tests run against a real database and are skipped unless
// DB_DSN points at one.
func setupRepo(t *testing.T) (*MessageRepo, *sqlx.DB) {
	t.Helper()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set, skipping database tests")
	}

	database, err := db.Connect(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewMessageRepo(database), database
}

// testUser generates a unique username so runs never see each other's rows.
func testUser(t *testing.T, database *sqlx.DB, prefix string) string {
	t.Helper()
	username := prefix + "-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = database.Exec(`DELETE FROM messages WHERE from_username=$1 OR to_username=$1`, username)
	})
	return username
}

func TestCreateThenThreadIncludesMessage(t *testing.T) {
	repo, database := setupRepo(t)
	ctx := context.Background()
	alice := testUser(t, database, "alice")
	bob := testUser(t, database, "bob")

	created, err := repo.Create(ctx, alice, bob, "hi")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, alice, created.FromUsername)
	assert.Equal(t, bob, created.ToUsername)
	assert.Equal(t, "hi", created.Text)
	assert.False(t, created.CreatedAt.IsZero())

	thread, err := repo.Thread(ctx, alice, bob)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, created.ID, thread[0].ID)
	assert.Equal(t, "hi", thread[0].Text)
}

func TestThreadIsSymmetric(t *testing.T) {
	repo, database := setupRepo(t)
	ctx := context.Background()
	alice := testUser(t, database, "alice")
	bob := testUser(t, database, "bob")
	carol := testUser(t, database, "carol")

	_, err := repo.Create(ctx, alice, bob, "one")
	require.NoError(t, err)
	_, err = repo.Create(ctx, bob, alice, "two")
	require.NoError(t, err)
	_, err = repo.Create(ctx, alice, bob, "three")
	require.NoError(t, err)
	// Unrelated traffic must never leak into the thread.
	_, err = repo.Create(ctx, alice, carol, "other")
	require.NoError(t, err)

	forward, err := repo.Thread(ctx, alice, bob)
	require.NoError(t, err)
	backward, err := repo.Thread(ctx, bob, alice)
	require.NoError(t, err)

	require.Equal(t, forward, backward)
	require.Len(t, forward, 3)
	assert.Equal(t, "one", forward[0].Text)
	assert.Equal(t, "two", forward[1].Text)
	assert.Equal(t, "three", forward[2].Text)
}

func TestAllForUserNewestFirst(t *testing.T) {
	repo, database := setupRepo(t)
	ctx := context.Background()
	alice := testUser(t, database, "alice")
	bob := testUser(t, database, "bob")
	carol := testUser(t, database, "carol")

	first, err := repo.Create(ctx, alice, bob, "to bob")
	require.NoError(t, err)
	second, err := repo.Create(ctx, carol, alice, "from carol")
	require.NoError(t, err)
	third, err := repo.Create(ctx, alice, bob, "to bob again")
	require.NoError(t, err)

	msgs, err := repo.AllForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, third.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)
	assert.Equal(t, first.ID, msgs[2].ID)
}
