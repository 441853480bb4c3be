package schedule_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/schedule"
)

type noopJob struct{}

func (noopJob) Name() string                  { return "noop" }
func (noopJob) Run(ctx context.Context) error { return nil }

func TestAddJobAcceptsFiveFieldSpec(t *testing.T) {
	s := schedule.NewCronScheduler()
	require.NoError(t, s.AddJob(noopJob{}, "*/30 * * * *"))
	require.NoError(t, s.AddJob(noopJob{}, "0 3 * * *"))
}

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := schedule.NewCronScheduler()
	require.Error(t, s.AddJob(noopJob{}, "not a cron spec"))
	require.Error(t, s.AddJob(noopJob{}, "* * * * * *"))
}

func TestStartStop(t *testing.T) {
	s := schedule.NewCronScheduler()
	require.NoError(t, s.AddJob(noopJob{}, "0 3 * * *"))
	s.Start(context.Background())
	s.Stop()
}
