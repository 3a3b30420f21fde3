package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

type TagRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   core.Clock
}

func NewTagRepository(db *sql.DB, dialect Dialect, clock core.Clock) *TagRepository {
	return &TagRepository{db: db, dialect: dialect, clock: clock}
}

// FindByIds loads the id and name of every tag in ids. Unknown ids are
// skipped, so the result can be shorter than the input.
func (r *TagRepository) FindByIds(ctx context.Context, ids []int64) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return []domain.Tag{}, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT id, name FROM tag_entity WHERE id IN (` + r.dialect.placeholders(1, len(ids)) + `) ORDER BY id ASC`
	return r.queryTags(ctx, r.db, query, args...)
}

// FindByWorkflowID returns the tags linked to a workflow ordered by tag id.
func (r *TagRepository) FindByWorkflowID(ctx context.Context, q DBTX, workflowID int64) ([]domain.Tag, error) {
	query := `
        SELECT t.id, t.name
        FROM tag_entity t
        JOIN workflows_tags wt ON wt.tag_id = t.id
        WHERE wt.workflow_id = ` + r.dialect.placeholder(1) + `
        ORDER BY t.id ASC`
	return r.queryTags(ctx, q, query, workflowID)
}

func (r *TagRepository) FindAll(ctx context.Context) ([]domain.Tag, error) {
	return r.queryTags(ctx, r.db, `SELECT id, name FROM tag_entity ORDER BY name ASC`)
}

func (r *TagRepository) FindByName(ctx context.Context, name string) (*domain.Tag, error) {
	var t domain.Tag
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM tag_entity WHERE name = `+r.dialect.placeholder(1), name).
		Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Save inserts a tag. Names are unique.
func (r *TagRepository) Save(ctx context.Context, t *domain.Tag) error {
	existing, err := r.FindByName(ctx, t.Name)
	if err != nil {
		return fmt.Errorf("failed to check tag name: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%q: %w", t.Name, ErrTagAlreadyExists)
	}
	now := r.dialect.formatTime(r.clock.Now())
	id, err := r.dialect.insertReturningID(ctx, r.db,
		`INSERT INTO tag_entity (name, created_at, updated_at) VALUES (`+r.dialect.placeholders(1, 3)+`)`,
		t.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	t.ID = id
	return nil
}

func (r *TagRepository) queryTags(ctx context.Context, q DBTX, query string, args ...any) ([]domain.Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]domain.Tag, 0)
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}
