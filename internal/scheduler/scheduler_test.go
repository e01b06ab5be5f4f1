package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerFlushesAtBatchSize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var callSizes []int
	call := func(reqs []int) ([]int, error) {
		mu.Lock()
		callSizes = append(callSizes, len(reqs))
		mu.Unlock()
		out := make([]int, len(reqs))
		for i, r := range reqs {
			out[i] = r * 2
		}
		return out, nil
	}
	s := New[int, int](ctx, Config{BatchSize: 4, IdleTimeout: time.Hour}, call)

	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.Submit(ctx, i)
			require.NoError(t, err)
			results[i] = resp
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		require.Equal(t, i*2, results[i])
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{4}, callSizes)
}

func TestSchedulerFlushesOnIdleTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	call := func(reqs []int) ([]int, error) {
		out := make([]int, len(reqs))
		for i, r := range reqs {
			out[i] = r + 100
		}
		return out, nil
	}
	s := New[int, int](ctx, Config{BatchSize: 8, IdleTimeout: 20 * time.Millisecond}, call)

	resp, err := s.Submit(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 101, resp)
}

func TestSchedulerPropagatesCallError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wantErr := errTest{}
	call := func(reqs []int) ([]int, error) {
		return nil, wantErr
	}
	s := New[int, int](ctx, Config{BatchSize: 1, IdleTimeout: time.Hour}, call)

	_, err := s.Submit(ctx, 1)
	require.ErrorIs(t, err, wantErr)
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
