package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	errs "github.com/jimmy12-d/rean-ai/internal/pkg/errors"
	"github.com/jimmy12-d/rean-ai/internal/model"
)

// Handle is a refcounted reference to a loaded engine. A generation holds a
// handle for its whole streaming call, so a model swap can never free an
// engine that is still producing tokens: a retired handle closes its engine
// only when the last reference drops.
type Handle struct {
	mu      sync.Mutex
	engine  Engine
	profile model.ModelProfile
	refs    int
	retired bool
}

func newHandle(eng Engine, profile model.ModelProfile) *Handle {
	return &Handle{engine: eng, profile: profile}
}

func (h *Handle) Engine() Engine {
	return h.engine
}

func (h *Handle) Profile() model.ModelProfile {
	return h.profile
}

// Release drops one reference. Must be called exactly once per Acquire.
func (h *Handle) Release() {
	h.mu.Lock()
	h.refs--
	shouldClose := h.retired && h.refs == 0
	h.mu.Unlock()
	if shouldClose {
		_ = h.engine.Close()
	}
}

func (h *Handle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

func (h *Handle) retire() {
	h.mu.Lock()
	h.retired = true
	shouldClose := h.refs == 0
	h.mu.Unlock()
	if shouldClose {
		_ = h.engine.Close()
	}
}

// BuildFunc constructs an engine for a profile. The default wiring resolves
// weight paths through the model store and calls engine.New.
type BuildFunc func(ctx context.Context, profile model.ModelProfile) (Engine, error)

// ModelInfo is the read-only view served by /current_model.
type ModelInfo struct {
	Key         string
	DisplayName string
	Available   []string
}

// Manager owns the currently loaded engine. Loads are serialized process-wide
// by loadMu; stateMu guards the (active, handle, loading) triple and is never
// held across an engine construction or a generation.
type Manager struct {
	profiles []model.ModelProfile
	byKey    map[string]model.ModelProfile
	build    BuildFunc

	loadMu  sync.Mutex
	stateMu sync.Mutex
	active  string
	handle  *Handle
	loading bool
}

func NewManager(profiles []model.ModelProfile, build BuildFunc) *Manager {
	byKey := make(map[string]model.ModelProfile, len(profiles))
	for _, p := range profiles {
		byKey[p.Key] = p
	}
	return &Manager{profiles: profiles, byKey: byKey, build: build}
}

// Load swaps the active model. The new engine is constructed first and the
// old one retired only after success, so a failed load leaves the previous
// model fully usable. Concurrent loads queue on loadMu; the last one to run
// wins.
func (m *Manager) Load(ctx context.Context, key string) error {
	profile, ok := m.byKey[key]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrUnknownModel, key)
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.stateMu.Lock()
	if m.handle != nil && m.active == key {
		m.stateMu.Unlock()
		logutil.GetLogger(ctx).Info("model already active", zap.String("model", key))
		return nil
	}
	m.loading = true
	m.stateMu.Unlock()

	logutil.GetLogger(ctx).Info("loading model",
		zap.String("model", key), zap.String("alias", profile.DisplayName))
	eng, err := m.build(ctx, profile)

	m.stateMu.Lock()
	m.loading = false
	if err != nil {
		// active and handle are untouched: the previous engine (if any)
		// keeps serving.
		m.stateMu.Unlock()
		logutil.GetLogger(ctx).Error("model load failed",
			zap.String("model", key), zap.Error(err))
		return fmt.Errorf("load model %s: %w", key, err)
	}
	old := m.handle
	m.handle = newHandle(eng, profile)
	m.active = key
	m.stateMu.Unlock()

	if old != nil {
		old.retire()
	}
	logutil.GetLogger(ctx).Info("model loaded", zap.String("model", key))
	return nil
}

// Acquire returns the current handle with a reference taken, or a busy error
// while a load is in flight or before the first load completes.
func (m *Manager) Acquire() (*Handle, error) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.loading {
		return nil, errs.ErrModelLoading
	}
	if m.handle == nil {
		return nil, errs.ErrNoEngine
	}
	m.handle.acquire()
	return m.handle, nil
}

// Current is readable at any time, including mid-load, and reports the
// last successfully activated model.
func (m *Manager) Current() ModelInfo {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	info := ModelInfo{Key: m.active}
	if p, ok := m.byKey[m.active]; ok {
		info.DisplayName = p.DisplayName
	}
	info.Available = make([]string, 0, len(m.profiles))
	for _, p := range m.profiles {
		info.Available = append(info.Available, p.Key)
	}
	return info
}

func (m *Manager) IsReady() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return !m.loading && m.handle != nil
}

// Close tears down the active engine; used on shutdown.
func (m *Manager) Close() {
	m.stateMu.Lock()
	handle := m.handle
	m.handle = nil
	m.stateMu.Unlock()
	if handle != nil {
		handle.retire()
	}
}
