package executor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllDrainsThenReturnsFirstError(t *testing.T) {
	p, err := NewPool(4, nil)
	require.NoError(t, err)
	defer p.Release()

	errA := errors.New("a")
	errB := errors.New("b")
	var finished atomic.Int32

	err = RunAll(p,
		func() error { finished.Add(1); return nil },
		func() error { time.Sleep(20 * time.Millisecond); finished.Add(1); return errA },
		func() error { finished.Add(1); return errB },
		func() error { time.Sleep(40 * time.Millisecond); finished.Add(1); return nil },
	)
	require.ErrorIs(t, err, errA)
	assert.Equal(t, int32(4), finished.Load())
}

func TestRunAllRecoversPanics(t *testing.T) {
	err := RunAll(Inline{}, func() error { panic("boom") })
	require.ErrorIs(t, err, ErrPanic)
}

func TestRunAllSucceeds(t *testing.T) {
	var n atomic.Int32
	tasks := make([]func() error, 10)
	for i := range tasks {
		tasks[i] = func() error { n.Add(1); return nil }
	}
	require.NoError(t, RunAll(nil, tasks...))
	assert.Equal(t, int32(10), n.Load())
}

func TestReleasedPoolRejects(t *testing.T) {
	p, err := NewPool(1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Cap())
	p.Release()

	err = RunAll(p, func() error { return nil })
	require.Error(t, err)
}
