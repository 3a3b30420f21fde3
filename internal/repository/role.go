package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

type RoleRepository struct {
	dialect Dialect
}

func NewRoleRepository(dialect Dialect) *RoleRepository {
	return &RoleRepository{dialect: dialect}
}

// FindOneOrFail looks up a role by name and scope. A missing role is reported
// as ErrRoleNotFound since the role table is seeded by migrations.
func (r *RoleRepository) FindOneOrFail(ctx context.Context, q DBTX, name, scope string) (*domain.Role, error) {
	query := `
        SELECT id, name, scope
        FROM role
        WHERE name = ` + r.dialect.placeholder(1) + ` AND scope = ` + r.dialect.placeholder(2) + `
    `
	var role domain.Role
	err := q.QueryRowContext(ctx, query, name, scope).Scan(&role.ID, &role.Name, &role.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &RoleError{Name: name, Scope: scope, Err: ErrRoleNotFound}
	}
	if err != nil {
		return nil, &RoleError{Name: name, Scope: scope, Err: err}
	}
	return &role, nil
}
