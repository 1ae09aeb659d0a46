package sessionstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/sessionstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openStore(t *testing.T, path string) *sessionstore.SQLite {
	t.Helper()
	store, err := sessionstore.OpenSQLite(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLite_EmptyLoad(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSQLite_SaveLoadSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")
	ctx := context.Background()
	updated := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	store := openStore(t, path)
	require.NoError(t, store.Save(ctx, &domain.Session{
		Token:     "tok-1",
		TokenType: "bearer",
		User:      &domain.User{ID: "7", Name: "Ana", Email: "ana@example.com"},
		UpdatedAt: updated,
	}))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)
	sess, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "bearer", sess.TokenType)
	require.NotNil(t, sess.User)
	assert.Equal(t, domain.ID("7"), sess.User.ID)
	assert.Equal(t, "ana@example.com", sess.User.Email)
	assert.True(t, updated.Equal(sess.UpdatedAt))
}

func TestSQLite_SaveReplaces(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Session{Token: "old", TokenType: "bearer", User: &domain.User{ID: "1"}}))
	require.NoError(t, store.Save(ctx, &domain.Session{Token: "new", TokenType: "bearer"}))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", sess.Token)
	assert.Nil(t, sess.User, "user from the previous session must not leak")
}

func TestSQLite_Clear(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Session{Token: "tok", TokenType: "bearer"}))
	require.NoError(t, store.Clear(ctx))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.NoError(t, store.Clear(ctx), "clearing an empty store is a no-op")
}

func TestSQLite_RejectsEmptyToken(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	assert.Error(t, store.Save(context.Background(), &domain.Session{}))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	store := sessionstore.NewMemory()
	ctx := context.Background()

	orig := &domain.Session{Token: "tok", User: &domain.User{Name: "Ana"}}
	require.NoError(t, store.Save(ctx, orig))
	orig.User.Name = "changed"

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", sess.User.Name)

	require.NoError(t, store.Clear(ctx))
	sess, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}
