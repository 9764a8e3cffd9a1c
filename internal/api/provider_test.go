package api

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

func TestProviderConcurrentInstanceBuildsOnce(t *testing.T) {
	var builds atomic.Int32
	p := NewProvider(DefaultConfig())
	p.build = func(cfg Config) (*Client, error) {
		builds.Add(1)
		time.Sleep(10 * time.Millisecond)
		return NewClient(cfg)
	}

	const n = 32
	clients := make([]*Client, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := p.Instance()
			assert.NoError(t, err)
			clients[i] = c
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	require.NotNil(t, clients[0])
	for _, c := range clients {
		assert.Same(t, clients[0], c)
	}
	assert.Equal(t, DefaultBaseURL, clients[0].BaseURL())
	p.Close()
}

func TestProviderRemembersBuildError(t *testing.T) {
	p := NewProvider(Config{BaseURL: "://bad"})

	_, err := p.Instance()
	require.Error(t, err)
	_, err2 := p.Instance()
	assert.Equal(t, err, err2)
}

func TestProviderClosedBeforeUse(t *testing.T) {
	p := NewProvider(DefaultConfig())
	p.Close()

	_, err := p.Instance()
	assert.ErrorIs(t, err, ErrProviderClosed)
}

func TestFutureAwait(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	res := f.Await(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, KindSuccess, res.Kind())
}

func TestFutureAwaitCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := Go(context.Background(), func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.Await(ctx)
	assert.Equal(t, KindCanceled, res.Kind())
}

func TestFutureThen(t *testing.T) {
	appErr := errors.New("boom")
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 0, appErr
	})

	got := make(chan Result[int], 1)
	f.Then(func(r Result[int]) { got <- r })

	select {
	case r := <-got:
		assert.ErrorIs(t, r.Err, appErr)
		assert.Equal(t, KindApplication, r.Kind())
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
