package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/domain/event"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
	"github.com/garyjia/kyc-review/internal/infrastructure/queue"
)

func TestTriggerWorker_RedisRedeliversAfterDispatchFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	trigger := queue.NewRedisTrigger(client, zap.NewNop(), queue.WithBlock(50*time.Millisecond))
	ctx := context.Background()
	require.NoError(t, trigger.Notify(ctx, "app-1", workflow.StateManualReview))

	dispatcher := &recordingDispatcher{failures: 1}
	w := NewTriggerWorker(TriggerWorkerConfig{ErrorBackoff: 10 * time.Millisecond}, trigger, dispatcher, nil, zap.NewNop())
	require.NoError(t, w.Start(ctx))

	require.Eventually(t, func() bool {
		processed, _ := w.Counts()
		return processed == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, w.Stop())

	processed, failed := w.Counts()
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, failed)
	require.Equal(t, 2, dispatcher.count())
	for _, evt := range dispatcher.events {
		assert.Equal(t, event.TypeNextStepRequested, evt.Type)
		assert.Equal(t, "app-1", evt.ApplicationID)
	}

	queued, err := trigger.Len(ctx)
	require.NoError(t, err)
	inFlight, err := trigger.InFlight(ctx)
	require.NoError(t, err)
	assert.Zero(t, queued)
	assert.Zero(t, inFlight)
}
