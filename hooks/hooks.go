package hooks

import (
	"context"
	"sync"

	"github.com/youssefsiam38/windowpg/types"
	"github.com/youssefsiam38/windowpg/window"
)

// AppendHook is called after a turn is appended to a session
type AppendHook func(ctx context.Context, sessionID string, turn *types.Turn) error

// BeforeTrimHook is called before a trim operation
type BeforeTrimHook func(ctx context.Context, sessionID string) error

// AfterTrimHook is called after a trim operation
type AfterTrimHook func(ctx context.Context, result *window.TrimResult) error

// Registry holds all registered hooks
type Registry struct {
	mu         sync.RWMutex
	append     []AppendHook
	beforeTrim []BeforeTrimHook
	afterTrim  []AfterTrimHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		append:     []AppendHook{},
		beforeTrim: []BeforeTrimHook{},
		afterTrim:  []AfterTrimHook{},
	}
}

// OnAppend registers a hook to be called after a turn is appended
func (r *Registry) OnAppend(hook AppendHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append = append(r.append, hook)
}

// OnBeforeTrim registers a hook to be called before a trim
func (r *Registry) OnBeforeTrim(hook BeforeTrimHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeTrim = append(r.beforeTrim, hook)
}

// OnAfterTrim registers a hook to be called after a trim
func (r *Registry) OnAfterTrim(hook AfterTrimHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterTrim = append(r.afterTrim, hook)
}

// TriggerAppend calls all registered append hooks
func (r *Registry) TriggerAppend(ctx context.Context, sessionID string, turn *types.Turn) error {
	r.mu.RLock()
	hooks := make([]AppendHook, len(r.append))
	copy(hooks, r.append)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, turn); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBeforeTrim calls all registered before-trim hooks
func (r *Registry) TriggerBeforeTrim(ctx context.Context, sessionID string) error {
	r.mu.RLock()
	hooks := make([]BeforeTrimHook, len(r.beforeTrim))
	copy(hooks, r.beforeTrim)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterTrim calls all registered after-trim hooks
func (r *Registry) TriggerAfterTrim(ctx context.Context, result *window.TrimResult) error {
	r.mu.RLock()
	hooks := make([]AfterTrimHook, len(r.afterTrim))
	copy(hooks, r.afterTrim)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, result); err != nil {
			return err
		}
	}
	return nil
}
