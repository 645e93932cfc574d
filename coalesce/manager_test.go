package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	keys := []string{"1", "2", "3", "4"}
	response := map[string]string{
		"1": "one",
		"2": "two",
		"3": "three",
		"4": "four",
	}

	fetches := new(int32)
	m := NewManager(func(_ context.Context, k string) (string, error) {
		atomic.AddInt32(fetches, 1)
		time.Sleep(10 * time.Millisecond)
		return response[k], nil
	}, time.Second)

	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		for _, key := range keys {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				res, err := m.Get(context.Background(), key)
				assert.NoError(t, err)
				assert.Equal(t, response[key], res)
			}(key)
		}
	}
	wg.Wait()
	assert.Equal(t, int32(len(keys)), atomic.LoadInt32(fetches))
}

func TestManagerErrorsNotCached(t *testing.T) {
	fetches := new(int32)
	m := NewManager(func(_ context.Context, _ string) (string, error) {
		if atomic.AddInt32(fetches, 1) == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, time.Second)

	_, err := m.Get(context.Background(), "k")
	require.Error(t, err)

	res, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "ok", res)
}

func TestManagerContextCancelled(t *testing.T) {
	m := NewManager(func(_ context.Context, _ string) (string, error) {
		time.Sleep(time.Second)
		return "slow", nil
	}, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Get(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
