// Package hooks lets embedders run their own code at named points of the
// workflow lifecycle. The set of hooks is fixed when the server starts.
package hooks

import (
	"context"
	"fmt"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

type Event string

const (
	// WorkflowCreate runs after validation and before the workflow is saved.
	// Hooks may modify the workflow.
	WorkflowCreate Event = "workflow.create"
	// WorkflowAfterCreate runs once the workflow and its owner share are committed.
	WorkflowAfterCreate Event = "workflow.afterCreate"
)

// WorkflowHook receives the workflow by reference.
type WorkflowHook func(ctx context.Context, wf *domain.Workflow) error

type Registration struct {
	Event Event
	Hook  WorkflowHook
}

// On is shorthand for building a Registration.
func On(event Event, hook WorkflowHook) Registration {
	return Registration{Event: event, Hook: hook}
}

// ExternalHooks dispatches lifecycle events to the registered hooks in
// registration order.
type ExternalHooks struct {
	hooks map[Event][]WorkflowHook
}

func NewExternalHooks(registrations ...Registration) *ExternalHooks {
	h := &ExternalHooks{hooks: make(map[Event][]WorkflowHook)}
	for _, r := range registrations {
		if r.Hook == nil {
			continue
		}
		h.hooks[r.Event] = append(h.hooks[r.Event], r.Hook)
	}
	return h
}

// Run calls every hook registered for event and stops at the first error.
func (h *ExternalHooks) Run(ctx context.Context, event Event, wf *domain.Workflow) error {
	if h == nil {
		return nil
	}
	for i, hook := range h.hooks[event] {
		if err := hook(ctx, wf); err != nil {
			return fmt.Errorf("hook %d for %s: %w", i, event, err)
		}
	}
	return nil
}

// Count returns how many hooks are registered for event.
func (h *ExternalHooks) Count(event Event) int {
	if h == nil {
		return 0
	}
	return len(h.hooks[event])
}
