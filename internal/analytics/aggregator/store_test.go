package aggregator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunPeriodicSavesOnTickAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var saves atomic.Int32
	var finalHadDeadline atomic.Bool
	done := runPeriodic(ctx, 5*time.Millisecond, func(saveCtx context.Context) {
		saves.Add(1)
		if ctx.Err() != nil {
			_, ok := saveCtx.Deadline()
			finalHadDeadline.Store(ok && saveCtx.Err() == nil)
		}
	})

	assert.Eventually(t, func() bool { return saves.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.True(t, finalHadDeadline.Load())
}
