package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// LockedCounter is the slice of the user store the report needs.
type LockedCounter interface {
	CountLocked(ctx context.Context) (int, error)
}

// Scheduler runs the periodic locked-account report. Locks are only ever
// cleared by an admin, so a growing count is worth surfacing.
type Scheduler struct {
	cron  *cron.Cron
	users LockedCounter
	spec  string
	log   zerolog.Logger
}

func NewScheduler(users LockedCounter, spec string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		users: users,
		spec:  spec,
		log:   log,
	}
}

// Start registers the report. An empty spec disables it.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.log.Info().Msg("lockout report disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.reportLocked); err != nil {
		return fmt.Errorf("schedule lockout report %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits up to five seconds for a running report.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("lockout report still running at shutdown")
	}
}

func (s *Scheduler) reportLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.ReportLocked(ctx); err != nil {
		s.log.Error().Err(err).Msg("lockout report failed")
	}
}

func (s *Scheduler) ReportLocked(ctx context.Context) (int, error) {
	count, err := s.users.CountLocked(ctx)
	if err != nil {
		return 0, fmt.Errorf("count locked accounts: %w", err)
	}

	event := s.log.Info()
	if count > 0 {
		event = s.log.Warn()
	}
	event.Int("locked_accounts", count).Msg("lockout report")
	return count, nil
}
