package crmsync

import (
	gosync "sync"

	"github.com/agentstation/crmsync/pkg/reconciler"
	"github.com/agentstation/crmsync/pkg/sync"
)

// Hook function types for pass events
type (
	// PassHook is called after every pass, aborted or not
	PassHook func(res *sync.Result, err error)

	// FailureHook is called for every per-identity failure of a pass
	FailureHook func(outcome reconciler.Outcome)
)

// Hooks registers pass callbacks.
type Hooks interface {
	// OnPassComplete registers a callback for finished passes
	OnPassComplete(PassHook)

	// OnFailure registers a callback for per-identity failures
	OnFailure(FailureHook)
}

// hooks manages event callbacks for passes
type hooks struct {
	mu             gosync.RWMutex
	onPassComplete []PassHook
	onFailure      []FailureHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnPassComplete registers a callback for finished passes
func (s *syncer) OnPassComplete(fn PassHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onPassComplete = append(s.hooks.onPassComplete, fn)
}

// OnFailure registers a callback for per-identity failures
func (s *syncer) OnFailure(fn FailureHook) {
	s.hooks.mu.Lock()
	defer s.hooks.mu.Unlock()
	s.hooks.onFailure = append(s.hooks.onFailure, fn)
}

// triggerPass fires failure hooks for each failed outcome, then pass hooks
func (h *hooks) triggerPass(res *sync.Result, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, o := range res.Outcomes() {
		if o.Action != reconciler.ActionFailed {
			continue
		}
		for _, hook := range h.onFailure {
			hook(o)
		}
	}
	for _, hook := range h.onPassComplete {
		hook(res, err)
	}
}
