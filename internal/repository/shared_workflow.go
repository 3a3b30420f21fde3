package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

// SharedWorkflowRepository owns the workflow <-> user sharing records and the
// transactional creation of a workflow together with its owner share.
type SharedWorkflowRepository struct {
	db        *sql.DB
	dialect   Dialect
	clock     core.Clock
	workflows *WorkflowRepository
	roles     *RoleRepository
	tags      *TagRepository
}

func NewSharedWorkflowRepository(db *sql.DB, dialect Dialect, clock core.Clock, workflows *WorkflowRepository, roles *RoleRepository, tags *TagRepository) *SharedWorkflowRepository {
	return &SharedWorkflowRepository{db: db, dialect: dialect, clock: clock, workflows: workflows, roles: roles, tags: tags}
}

// SaveWithOwner persists wf and a shared_workflow row granting owner the
// (owner, workflow) role. Both rows are written in one transaction.
func (r *SharedWorkflowRepository) SaveWithOwner(ctx context.Context, wf *domain.Workflow, owner *domain.User) (*domain.Workflow, error) {
	var saved *domain.Workflow
	err := RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.workflows.Insert(ctx, tx, wf); err != nil {
			return err
		}
		role, err := r.roles.FindOneOrFail(ctx, tx, domain.RoleOwner, domain.RoleScopeWorkflow)
		if err != nil {
			return err
		}
		shared := &domain.SharedWorkflow{
			UserID:     owner.ID,
			WorkflowID: wf.ID,
			Role:       *role,
			Workflow:   wf,
		}
		if err := r.insert(ctx, tx, shared); err != nil {
			return err
		}
		saved = wf
		return nil
	})
	if err != nil {
		// the insert set an id that no longer exists
		wf.ID = 0
		return nil, err
	}
	return saved, nil
}

func (r *SharedWorkflowRepository) insert(ctx context.Context, q DBTX, s *domain.SharedWorkflow) error {
	s.CreatedAt = r.clock.Now().UTC()
	now := r.dialect.formatTime(s.CreatedAt)
	query := `INSERT INTO shared_workflow (user_id, workflow_id, role_id, created_at, updated_at)
		VALUES (` + r.dialect.placeholders(1, 5) + `)`
	if _, err := q.ExecContext(ctx, query, s.UserID, s.WorkflowID, s.Role.ID, now, now); err != nil {
		return fmt.Errorf("failed to insert shared workflow: %w", err)
	}
	return nil
}

// FindForUser loads the sharing record of workflowID for userID together with
// the workflow, and its tags when withTags is set. Returns (nil, nil) when the
// workflow is not shared with the user, whether or not it exists.
func (r *SharedWorkflowRepository) FindForUser(ctx context.Context, userID, workflowID int64, withTags bool) (*domain.SharedWorkflow, error) {
	query := `
		SELECT ` + workflowColumns + `, s.user_id, s.created_at, ro.id, ro.name, ro.scope
		FROM shared_workflow s
		JOIN workflow_entity w ON w.id = s.workflow_id
		JOIN role ro ON ro.id = s.role_id
		WHERE s.user_id = ` + r.dialect.placeholder(1) + ` AND s.workflow_id = ` + r.dialect.placeholder(2)

	var shared domain.SharedWorkflow
	wf, err := scanWorkflow(r.db.QueryRowContext(ctx, query, userID, workflowID),
		&shared.UserID, &shared.CreatedAt, &shared.Role.ID, &shared.Role.Name, &shared.Role.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared workflow %d: %w", workflowID, err)
	}
	shared.WorkflowID = wf.ID
	shared.Workflow = wf

	if withTags {
		tags, err := r.tags.FindByWorkflowID(ctx, r.db, wf.ID)
		if err != nil {
			return nil, err
		}
		wf.Tags = tags
	}
	return &shared, nil
}
