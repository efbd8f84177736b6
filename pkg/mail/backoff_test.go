package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(1, defaultBaseDelay, defaultMaxDelay))
	assert.Equal(t, 2*time.Second, backoffDelay(2, defaultBaseDelay, defaultMaxDelay))
	assert.Equal(t, 4*time.Second, backoffDelay(3, defaultBaseDelay, defaultMaxDelay))
	assert.Equal(t, 16*time.Second, backoffDelay(5, defaultBaseDelay, defaultMaxDelay))
	assert.Equal(t, 32*time.Second, backoffDelay(6, defaultBaseDelay, defaultMaxDelay))
	// Capped from here on.
	assert.Equal(t, 32*time.Second, backoffDelay(7, defaultBaseDelay, defaultMaxDelay))
	assert.Equal(t, 32*time.Second, backoffDelay(40, defaultBaseDelay, defaultMaxDelay))
}

func TestBackoffSchedule_Monotonic(t *testing.T) {
	schedule := BackoffSchedule(10, defaultBaseDelay, defaultMaxDelay)
	require.Len(t, schedule, 10)
	for i := 1; i < len(schedule); i++ {
		assert.GreaterOrEqual(t, schedule[i], schedule[i-1])
	}
}

func TestContextSleep_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := contextSleep(ctx, time.Minute)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestContextSleep_Elapses(t *testing.T) {
	err := contextSleep(context.Background(), time.Millisecond)
	assert.NoError(t, err)
}
