package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kube-rca/diary/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCounter struct{}

func (failingCounter) CountUsers(ctx context.Context) (int64, error) {
	return 0, errors.New("db down")
}

func TestStatsService_Snapshot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	require.NoError(t, store.InsertUser(context.Background(), &model.Credential{ID: "1", Username: "alice"}))
	require.NoError(t, store.InsertUser(context.Background(), &model.Credential{ID: "2", Username: "bob"}))

	ledger := &fakeLedger{sessions: []model.Session{
		{ID: "a", ExpiresAt: now.Add(time.Hour)},
		{ID: "b", ExpiresAt: now.Add(-time.Hour)},
	}}

	svc := NewStatsService(store, ledger, now.Add(-90*time.Second))
	svc.now = func() time.Time { return now }

	snapshot, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.StatsSnapshot{
		TotalUsers:     2,
		ActiveSessions: 1,
		ServerStatus:   model.ServerStatusOK,
		ServerUptime:   90,
	}, snapshot)
}

func TestStatsService_StorageError(t *testing.T) {
	svc := NewStatsService(failingCounter{}, &fakeLedger{}, time.Now())
	_, err := svc.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrStorage)

	svc = NewStatsService(newFakeStore(), &fakeLedger{err: errors.New("redis down")}, time.Now())
	_, err = svc.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrStorage)
}
