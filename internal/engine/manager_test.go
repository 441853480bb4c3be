package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/engine"
	"github.com/jimmy12-d/rean-ai/internal/model"
	errs "github.com/jimmy12-d/rean-ai/internal/pkg/errors"
)

type fakeEngine struct {
	mu     sync.Mutex
	closed bool
}

func (e *fakeEngine) Complete(ctx context.Context, prompt string, params engine.Params, onToken func(string) error) error {
	return onToken("ok")
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func testProfiles() []model.ModelProfile {
	return []model.ModelProfile{
		{Key: "qwen-khmer", WeightsPath: "/models/qwen.gguf", DisplayName: "Qwen Khmer", Family: model.FamilyQwen},
		{Key: "seallm-khmer", WeightsPath: "/models/seallm.gguf", DisplayName: "SeaLLM Khmer", Family: model.FamilySeaLLM},
	}
}

func TestManagerLoadUnknownModel(t *testing.T) {
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		return &fakeEngine{}, nil
	})
	err := m.Load(context.Background(), "gpt-999")
	require.ErrorIs(t, err, errs.ErrUnknownModel)
	require.False(t, m.IsReady())
}

func TestManagerAcquireBeforeFirstLoad(t *testing.T) {
	m := engine.NewManager(testProfiles(), nil)
	_, err := m.Acquire()
	require.ErrorIs(t, err, errs.ErrNoEngine)
	require.Empty(t, m.Current().Key)
}

func TestManagerLoadAndCurrent(t *testing.T) {
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		return &fakeEngine{}, nil
	})
	require.NoError(t, m.Load(context.Background(), "qwen-khmer"))
	require.True(t, m.IsReady())

	info := m.Current()
	require.Equal(t, "qwen-khmer", info.Key)
	require.Equal(t, "Qwen Khmer", info.DisplayName)
	require.Equal(t, []string{"qwen-khmer", "seallm-khmer"}, info.Available)

	handle, err := m.Acquire()
	require.NoError(t, err)
	require.Equal(t, "qwen-khmer", handle.Profile().Key)
	handle.Release()
}

func TestManagerSameKeyLoadIsNoop(t *testing.T) {
	builds := 0
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		builds++
		return &fakeEngine{}, nil
	})
	require.NoError(t, m.Load(context.Background(), "qwen-khmer"))
	require.NoError(t, m.Load(context.Background(), "qwen-khmer"))
	require.Equal(t, 1, builds)
}

func TestManagerFailedLoadKeepsPreviousEngine(t *testing.T) {
	first := &fakeEngine{}
	fail := false
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		if fail {
			return nil, errors.New("weights missing")
		}
		return first, nil
	})
	require.NoError(t, m.Load(context.Background(), "qwen-khmer"))

	fail = true
	err := m.Load(context.Background(), "seallm-khmer")
	require.Error(t, err)
	require.False(t, errs.IsUnknownModel(err))

	// The old model keeps serving.
	require.True(t, m.IsReady())
	require.Equal(t, "qwen-khmer", m.Current().Key)
	handle, err := m.Acquire()
	require.NoError(t, err)
	require.False(t, first.isClosed())
	handle.Release()
}

func TestManagerSwapRetiresOldEngineAfterLastRelease(t *testing.T) {
	engines := map[string]*fakeEngine{
		"qwen-khmer":   {},
		"seallm-khmer": {},
	}
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		return engines[p.Key], nil
	})
	require.NoError(t, m.Load(context.Background(), "qwen-khmer"))

	// A stream holds the old engine across the swap.
	handle, err := m.Acquire()
	require.NoError(t, err)

	require.NoError(t, m.Load(context.Background(), "seallm-khmer"))
	require.Equal(t, "seallm-khmer", m.Current().Key)
	require.False(t, engines["qwen-khmer"].isClosed())

	handle.Release()
	require.True(t, engines["qwen-khmer"].isClosed())
	require.False(t, engines["seallm-khmer"].isClosed())
}

func TestManagerSwapWithoutHoldersClosesImmediately(t *testing.T) {
	old := &fakeEngine{}
	built := false
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		if !built {
			built = true
			return old, nil
		}
		return &fakeEngine{}, nil
	})
	require.NoError(t, m.Load(context.Background(), "qwen-khmer"))
	require.NoError(t, m.Load(context.Background(), "seallm-khmer"))
	require.True(t, old.isClosed())
}

func TestManagerAcquireWhileLoading(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		close(started)
		<-release
		return &fakeEngine{}, nil
	})

	done := make(chan error, 1)
	go func() {
		done <- m.Load(context.Background(), "qwen-khmer")
	}()
	<-started

	require.False(t, m.IsReady())
	_, err := m.Acquire()
	require.ErrorIs(t, err, errs.ErrModelLoading)

	close(release)
	require.NoError(t, <-done)
	require.True(t, m.IsReady())
}

func TestManagerConcurrentLoadsSerialize(t *testing.T) {
	var mu sync.Mutex
	var order []string
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		mu.Lock()
		order = append(order, p.Key)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		return &fakeEngine{}, nil
	})

	var wg sync.WaitGroup
	for _, key := range []string{"qwen-khmer", "seallm-khmer"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			require.NoError(t, m.Load(context.Background(), key))
		}(key)
	}
	wg.Wait()

	require.Len(t, order, 2)
	require.True(t, m.IsReady())
	require.Equal(t, order[len(order)-1], m.Current().Key)
}

func TestManagerCloseRetiresActiveEngine(t *testing.T) {
	eng := &fakeEngine{}
	m := engine.NewManager(testProfiles(), func(ctx context.Context, p model.ModelProfile) (engine.Engine, error) {
		return eng, nil
	})
	require.NoError(t, m.Load(context.Background(), "qwen-khmer"))
	m.Close()
	require.True(t, eng.isClosed())
	_, err := m.Acquire()
	require.ErrorIs(t, err, errs.ErrNoEngine)
}
