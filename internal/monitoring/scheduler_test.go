package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isdelr/ender-portal/internal/models"
	"github.com/stretchr/testify/require"
)

type countingBackups struct {
	calls atomic.Int32
	err   error
}

func (c *countingBackups) CreateBackup(ctx context.Context) (models.Backup, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return models.Backup{}, errors.New("backup context has no deadline")
	}
	return models.Backup{}, c.err
}


func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(&countingBackups{}, "every tuesday")
	require.Error(t, err)
}

func TestScheduler_Next(t *testing.T) {
	s, err := NewScheduler(&countingBackups{}, "0 3 * * *")
	require.NoError(t, err)

	next := s.Next()
	require.Equal(t, 3, next.Hour())
	require.Equal(t, 0, next.Minute())
	require.True(t, next.After(time.Now()))
}

func TestScheduler_RunBackup(t *testing.T) {
	backups := &countingBackups{}
	s, err := NewScheduler(backups, "@every 1h")
	require.NoError(t, err)

	s.runBackup()
	require.EqualValues(t, 1, backups.calls.Load())

	backups.err = errors.New("disk full")
	s.runBackup()
	require.EqualValues(t, 2, backups.calls.Load())
}

func TestScheduler_RunAndStop(t *testing.T) {
	s, err := NewScheduler(&countingBackups{}, "@every 1h")
	require.NoError(t, err)

	s.Run()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
