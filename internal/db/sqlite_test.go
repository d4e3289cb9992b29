package db

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kube-rca/diary/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestSQLite_InsertAndFind(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 123000, time.UTC)

	cred := &model.Credential{ID: "id-1", Username: "alice", PasswordHash: "hash", CreatedAt: createdAt}
	require.NoError(t, store.InsertUser(ctx, cred))

	byName, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, *cred, *byName)

	byID, err := store.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = store.FindByUsername(ctx, "Alice")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_DuplicateUsername(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.InsertUser(ctx, &model.Credential{ID: "id-1", Username: "alice", PasswordHash: "h", CreatedAt: time.Now()}))

	err := store.InsertUser(ctx, &model.Credential{ID: "id-2", Username: "alice", PasswordHash: "h", CreatedAt: time.Now()})
	require.ErrorIs(t, err, ErrUniqueViolation)

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLite_ConcurrentInsertSameUsername(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.InsertUser(ctx, &model.Credential{
				ID:           "id-" + string(rune('a'+i)),
				Username:     "alice",
				PasswordHash: "h",
				CreatedAt:    time.Now(),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrUniqueViolation)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSQLite_Sessions(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertUser(ctx, &model.Credential{ID: "u1", Username: "alice", PasswordHash: "h", CreatedAt: now}))
	require.NoError(t, store.RecordSession(ctx, model.Session{ID: "s1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.RecordSession(ctx, model.Session{ID: "s2", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}))

	count, err := store.CountActiveSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.CountActiveSessions(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSQLite_SessionRequiresUser(t *testing.T) {
	store := newTestSQLite(t)
	now := time.Now()

	err := store.RecordSession(context.Background(), model.Session{ID: "s1", UserID: "ghost", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.Error(t, err)
}

func TestOpenSQLite_PathWithURIDelimiters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my?db#1.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	_, err = os.Stat(path)
	require.NoError(t, err, "database file should keep its full name")
	_, err = os.Stat(filepath.Join(dir, "my"))
	assert.True(t, os.IsNotExist(err))
}
