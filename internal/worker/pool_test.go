package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_RunsAllTasks(t *testing.T) {
	p := New(context.Background(), 3, nil)
	p.Start()

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		ok := p.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		assert.True(t, ok)
	}
	stats := p.Wait()

	assert.Equal(t, int32(20), ran.Load())
	assert.Equal(t, Stats{Submitted: 20, Succeeded: 20}, stats)
}

func TestPool_CountsFailures(t *testing.T) {
	p := New(context.Background(), 2, nil)
	p.Start()

	for i := 0; i < 6; i++ {
		i := i
		p.Submit(func(ctx context.Context) error {
			if i%2 == 0 {
				return errors.New("boom")
			}
			return nil
		})
	}
	stats := p.Wait()

	assert.Equal(t, int64(3), stats.Failed)
	assert.Equal(t, int64(3), stats.Succeeded)
}

func TestPool_SubmitAfterWait(t *testing.T) {
	p := New(context.Background(), 1, nil)
	p.Start()
	p.Wait()

	assert.False(t, p.Submit(func(ctx context.Context) error { return nil }))
	assert.Equal(t, int64(1), p.Stats().Dropped)
}

func TestPool_ShutdownCancelsContext(t *testing.T) {
	p := New(context.Background(), 1, nil)
	started := make(chan struct{})
	var sawCancel atomic.Bool

	p.Start()
	p.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	})
	<-started
	p.Shutdown()

	assert.True(t, sawCancel.Load())
}
