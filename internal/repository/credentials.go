package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

const credentialColumns = ` c.id, c.name, c.type, c.created_at, c.updated_at `

type CredentialsRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   core.Clock
	roles   *RoleRepository
}

func NewCredentialsRepository(db *sql.DB, dialect Dialect, clock core.Clock, roles *RoleRepository) *CredentialsRepository {
	return &CredentialsRepository{db: db, dialect: dialect, clock: clock, roles: roles}
}

// SaveWithOwner inserts a credential and its (owner, credential) share in one transaction.
func (r *CredentialsRepository) SaveWithOwner(ctx context.Context, c *domain.Credential, owner *domain.User) error {
	return RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		now := r.clock.Now().UTC()
		id, err := r.dialect.insertReturningID(ctx, tx,
			`INSERT INTO credentials_entity (name, type, created_at, updated_at) VALUES (`+r.dialect.placeholders(1, 4)+`)`,
			c.Name, c.Type, r.dialect.formatTime(now), r.dialect.formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to insert credential: %w", err)
		}
		role, err := r.roles.FindOneOrFail(ctx, tx, domain.RoleOwner, domain.RoleScopeCredential)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO shared_credentials (user_id, credentials_id, role_id, created_at, updated_at) VALUES (`+r.dialect.placeholders(1, 5)+`)`,
			owner.ID, id, role.ID, r.dialect.formatTime(now), r.dialect.formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to insert shared credential: %w", err)
		}
		c.ID = id
		c.CreatedAt = now
		c.UpdatedAt = now
		return nil
	})
}

const sharedCredentialsFrom = `
		FROM credentials_entity c
		JOIN shared_credentials sc ON sc.credentials_id = c.id
		WHERE sc.user_id = `

// FindAllForUser lists the credentials shared with the user.
func (r *CredentialsRepository) FindAllForUser(ctx context.Context, userID int64) ([]domain.Credential, error) {
	query := `SELECT ` + credentialColumns + sharedCredentialsFrom + r.dialect.placeholder(1) + ` ORDER BY c.id ASC`
	return r.query(ctx, query, userID)
}

// FindForUserByID returns (nil, nil) unless a credential with that id and type is shared with the user.
func (r *CredentialsRepository) FindForUserByID(ctx context.Context, userID, id int64, credentialType string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + sharedCredentialsFrom + r.dialect.placeholder(1) +
		` AND c.id = ` + r.dialect.placeholder(2) + ` AND c.type = ` + r.dialect.placeholder(3)
	var c domain.Credential
	err := r.db.QueryRowContext(ctx, query, userID, id, credentialType).Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential %d: %w", id, err)
	}
	return &c, nil
}

// FindForUserByName returns every credential of the given name and type shared with the user.
func (r *CredentialsRepository) FindForUserByName(ctx context.Context, userID int64, name, credentialType string) ([]domain.Credential, error) {
	query := `SELECT ` + credentialColumns + sharedCredentialsFrom + r.dialect.placeholder(1) +
		` AND c.name = ` + r.dialect.placeholder(2) + ` AND c.type = ` + r.dialect.placeholder(3) + ` ORDER BY c.id ASC`
	return r.query(ctx, query, userID, name, credentialType)
}

func (r *CredentialsRepository) query(ctx context.Context, query string, args ...any) ([]domain.Credential, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	credentials := make([]domain.Credential, 0)
	for rows.Next() {
		var c domain.Credential
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		credentials = append(credentials, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}
	return credentials, nil
}
