package notify_test

import (
	"testing"

	"github.com/dvir/roombill-client/internal/notify"
	"github.com/dvir/roombill-client/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronScheduler_Schedule(t *testing.T) {
	s := notify.NewCronScheduler(func() {}, testutil.Logger())
	defer s.Stop()

	require.NoError(t, s.ScheduleDailyReminder(9, 0))
	require.NoError(t, s.ScheduleDailyReminder(18, 30))
	s.CancelAll()

	// Cancelling twice is harmless.
	s.CancelAll()
}

func TestCronScheduler_RejectsInvalidTime(t *testing.T) {
	s := notify.NewCronScheduler(func() {}, testutil.Logger())
	defer s.Stop()

	assert.Error(t, s.ScheduleDailyReminder(25, 0))
	assert.Error(t, s.ScheduleDailyReminder(9, 61))
}

func TestNoop(t *testing.T) {
	var s notify.Scheduler = notify.Noop{}
	assert.NoError(t, s.ScheduleDailyReminder(9, 0))
	s.CancelAll()
}
