package scheduler

import (
	"context"
	"io"
	"testing"

	"GameSync/internal/config"
	"GameSync/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	ran  []string
	busy bool
}

func (r *recordingRunner) Run(_ context.Context, name string) bool {
	if r.busy {
		return false
	}
	r.ran = append(r.ran, name)
	return true
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func defaultSchedule() config.ScheduleConfig {
	return config.ScheduleConfig{
		Enabled:    true,
		Daily:      "0 0 4 * * *",
		Prices:     "0 0 0,6,12,18 * * *",
		Concurrent: "0 0/15 * * * *",
		MostPlayed: "0 0 * * * *",
		Weekly:     "0 0 18 * * TUE",
		Monthly:    "0 0 3 16 * *",
		Yearly:     "0 0 18 15 1 *",
	}
}

func TestEntries_SkipsEmptySpecs(t *testing.T) {
	cfg := defaultSchedule()
	cfg.Yearly = ""

	entries := Entries(cfg)

	require.Len(t, entries, 6)
	assert.Equal(t, Entry{Spec: "0 0 4 * * *", Job: service.JobDaily}, entries[0])
	for _, e := range entries {
		assert.NotEqual(t, service.JobYearly, e.Job)
	}
}

func TestRegister_AcceptsDefaultSchedule(t *testing.T) {
	s := New(context.Background(), &recordingRunner{}, quietLogger())
	require.NoError(t, s.Register(Entries(defaultSchedule())))
}

func TestRegister_RejectsInvalidSpec(t *testing.T) {
	s := New(context.Background(), &recordingRunner{}, quietLogger())
	err := s.Register([]Entry{{Spec: "every day", Job: service.JobDaily}})
	assert.Error(t, err)
}

func TestFire_SkipsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &recordingRunner{}
	s := New(ctx, runner, quietLogger())

	s.fire(Entry{Job: service.JobConcurrent})
	cancel()
	s.fire(Entry{Job: service.JobConcurrent})

	assert.Equal(t, []string{service.JobConcurrent}, runner.ran)
}
