package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalHooks_RunInOrder(t *testing.T) {
	var calls []string
	h := NewExternalHooks(
		On(WorkflowCreate, func(ctx context.Context, wf *domain.Workflow) error {
			calls = append(calls, "first")
			wf.Name = wf.Name + "!"
			return nil
		}),
		On(WorkflowAfterCreate, func(ctx context.Context, wf *domain.Workflow) error {
			calls = append(calls, "after")
			return nil
		}),
		On(WorkflowCreate, func(ctx context.Context, wf *domain.Workflow) error {
			calls = append(calls, "second:"+wf.Name)
			return nil
		}),
		On(WorkflowCreate, nil),
	)

	wf := &domain.Workflow{Name: "flow"}
	require.NoError(t, h.Run(context.Background(), WorkflowCreate, wf))
	assert.Equal(t, []string{"first", "second:flow!"}, calls)
	assert.Equal(t, 2, h.Count(WorkflowCreate))
	assert.Equal(t, 1, h.Count(WorkflowAfterCreate))
}

func TestExternalHooks_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	secondRan := false
	h := NewExternalHooks(
		On(WorkflowCreate, func(ctx context.Context, wf *domain.Workflow) error { return boom }),
		On(WorkflowCreate, func(ctx context.Context, wf *domain.Workflow) error {
			secondRan = true
			return nil
		}),
	)

	err := h.Run(context.Background(), WorkflowCreate, &domain.Workflow{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, secondRan)
}

func TestExternalHooks_NilIsNoop(t *testing.T) {
	var h *ExternalHooks
	assert.NoError(t, h.Run(context.Background(), WorkflowCreate, &domain.Workflow{}))
	assert.Zero(t, h.Count(WorkflowCreate))
}
