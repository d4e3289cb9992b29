package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kube-rca/diary/internal/model"
)

type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

type StatsService struct {
	users     UserCounter
	sessions  SessionLedger
	startedAt time.Time
	now       func() time.Time
}

func NewStatsService(users UserCounter, sessions SessionLedger, startedAt time.Time) *StatsService {
	return &StatsService{
		users:     users,
		sessions:  sessions,
		startedAt: startedAt,
		now:       time.Now,
	}
}

func (s *StatsService) Snapshot(ctx context.Context) (*model.StatsSnapshot, error) {
	now := s.now()

	totalUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	activeSessions, err := s.sessions.CountActiveSessions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &model.StatsSnapshot{
		TotalUsers:     totalUsers,
		ActiveSessions: activeSessions,
		ServerStatus:   model.ServerStatusOK,
		ServerUptime:   int64(now.Sub(s.startedAt).Seconds()),
	}, nil
}
