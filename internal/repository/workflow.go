package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

const workflowColumns = ` w.id, w.name, w.active, w.nodes, w.connections, w.settings,
		       w.static_data, w.pin_data, w.created_at, w.updated_at `

type WorkflowRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   core.Clock
}

func NewWorkflowRepository(db *sql.DB, dialect Dialect, clock core.Clock) *WorkflowRepository {
	return &WorkflowRepository{db: db, dialect: dialect, clock: clock}
}

// Insert writes a new workflow row plus its tag links and sets the generated
// id and timestamps on wf.
func (r *WorkflowRepository) Insert(ctx context.Context, q DBTX, wf *domain.Workflow) error {
	// pinned data only ever lives in the workflow level column
	stored := make([]domain.Node, len(wf.Nodes))
	for i, n := range wf.Nodes {
		n.PinData = nil
		stored[i] = n
	}
	nodes, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode nodes: %w", err)
	}
	connections, err := json.Marshal(wf.Connections)
	if err != nil {
		return fmt.Errorf("failed to encode connections: %w", err)
	}
	settings, err := nullableJSON(wf.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	staticData, err := nullableJSON(wf.StaticData)
	if err != nil {
		return fmt.Errorf("failed to encode static data: %w", err)
	}

	now := r.clock.Now().UTC()
	query := `INSERT INTO workflow_entity (
		name, active, nodes, connections, settings, static_data, pin_data, created_at, updated_at
	) VALUES (` + r.dialect.placeholders(1, 9) + `)`
	id, err := r.dialect.insertReturningID(ctx, q, query,
		wf.Name,
		wf.Active,
		string(nodes),
		string(connections),
		settings,
		staticData,
		wf.PinData,
		r.dialect.formatTime(now),
		r.dialect.formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert workflow: %w", err)
	}
	wf.ID = id
	wf.CreatedAt = now
	wf.UpdatedAt = now

	linkQuery := `INSERT INTO workflows_tags (workflow_id, tag_id) VALUES (` + r.dialect.placeholders(1, 2) + `)`
	for _, t := range wf.Tags {
		if _, err := q.ExecContext(ctx, linkQuery, wf.ID, t.ID); err != nil {
			return fmt.Errorf("failed to link tag %d: %w", t.ID, err)
		}
	}
	return nil
}

// FindByID returns (nil, nil) if the workflow does not exist. Tags are not loaded.
func (r *WorkflowRepository) FindByID(ctx context.Context, id int64) (*domain.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_entity w WHERE w.id = ` + r.dialect.placeholder(1)
	wf, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return wf, nil
}

// Count returns the number of stored workflows.
func (r *WorkflowRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_entity`).Scan(&n)
	return n, err
}

// scanWorkflow reads workflowColumns followed by any extra destinations.
func scanWorkflow(row rowScanner, extra ...any) (*domain.Workflow, error) {
	var (
		wf          domain.Workflow
		nodes       string
		connections sql.NullString
		settings    sql.NullString
		staticData  sql.NullString
	)
	dest := append([]any{
		&wf.ID,
		&wf.Name,
		&wf.Active,
		&nodes,
		&connections,
		&settings,
		&staticData,
		&wf.PinData,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	wf.Nodes = []domain.Node{}
	if nodes != "" {
		if err := json.Unmarshal([]byte(nodes), &wf.Nodes); err != nil {
			return nil, fmt.Errorf("failed to decode nodes of workflow %d: %w", wf.ID, err)
		}
	}
	var err error
	if wf.Connections, err = decodeObject(connections); err != nil {
		return nil, fmt.Errorf("failed to decode connections of workflow %d: %w", wf.ID, err)
	}
	if wf.Connections == nil {
		wf.Connections = map[string]any{}
	}
	if wf.Settings, err = decodeObject(settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings of workflow %d: %w", wf.ID, err)
	}
	if wf.StaticData, err = decodeObject(staticData); err != nil {
		return nil, fmt.Errorf("failed to decode static data of workflow %d: %w", wf.ID, err)
	}
	return &wf, nil
}

func nullableJSON(v map[string]any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeObject(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil, nil
	}
	out := make(map[string]any)
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
