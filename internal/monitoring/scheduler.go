package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/ender-portal/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs user store backups on a cron schedule.
type Scheduler struct {
	backupSvc services.BackupServiceProvider
	cron      *cron.Cron
	timeout   time.Duration
}

// NewScheduler creates a scheduler that backs up on schedule, a standard
// five-field cron expression.
func NewScheduler(backupSvc services.BackupServiceProvider, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		backupSvc: backupSvc,
		cron:      cron.New(),
		timeout:   time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.runBackup); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the scheduler in the background.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting backup scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Backup scheduler stopped")
}

// Next returns when the next backup is due.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.backupSvc.CreateBackup(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled backup failed")
	}
}
