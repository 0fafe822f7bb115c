package taskgroup

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepError struct{ instance int }

func (e *stepError) Error() string { return fmt.Sprintf("instance %d failed", e.instance) }

func TestGroup_IsolatesFailures(t *testing.T) {
	g := New("consumers", 0)
	for i := 1; i <= 5; i++ {
		i := i
		g.Go(fmt.Sprintf("consumer-%d", i), func() error {
			// finish in reverse order
			time.Sleep(time.Duration(6-i) * 5 * time.Millisecond)
			if i == 3 {
				return &stepError{instance: i}
			}
			return nil
		})
	}

	res := g.Wait()
	assert.Equal(t, []string{"consumer-3"}, res.Failed())
	assert.Equal(t, []string{"consumer-1", "consumer-2", "consumer-4", "consumer-5"}, res.Succeeded())

	err := res.Err()
	require.Error(t, err)
	var agg *AggregateError
	require.True(t, errors.As(err, &agg))
	assert.Equal(t, []string{"consumer-3"}, agg.Failed)
	var se *stepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.instance)
}

func TestGroup_AllSucceed(t *testing.T) {
	g := New("install", 2)
	var ran atomic.Int32
	for _, k := range []string{"a", "b", "c"} {
		g.Go(k, func() error {
			ran.Add(1)
			return nil
		})
	}
	res := g.Wait()
	assert.NoError(t, res.Err())
	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, []string{"a", "b", "c"}, res.Keys())
}

func TestGroup_LimitBoundsConcurrency(t *testing.T) {
	g := New("bounded", 2)
	var current, peak atomic.Int32
	for i := 0; i < 6; i++ {
		g.Go(fmt.Sprint(i), func() error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return nil
		})
	}
	require.NoError(t, g.Wait().Err())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGroup_RecoversPanics(t *testing.T) {
	g := New("panics", 0)
	g.Go("boom", func() error { panic("kaboom") })
	g.Go("fine", func() error { return nil })

	res := g.Wait()
	err, ok := res.Get("boom")
	require.True(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, []string{"fine"}, res.Succeeded())
}

func TestGroup_DuplicateKey(t *testing.T) {
	g := New("dups", 0)
	g.Go("same", func() error { return nil })
	g.Go("same", func() error { return nil })

	res := g.Wait()
	assert.Equal(t, []string{"same"}, res.Keys())
	assert.Equal(t, []string{"same"}, res.Failed())
}

func TestResults_GetUnknown(t *testing.T) {
	res := New("empty", 0).Wait()
	_, ok := res.Get("missing")
	assert.False(t, ok)
	assert.NoError(t, res.Err())
	assert.Empty(t, res.Keys())
}
