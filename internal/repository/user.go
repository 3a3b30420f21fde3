package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

const userColumns = ` id, username, password, retry_count, session_id, api_key, session_expiry, created, enabled `

// UserRepository provides persistence methods for the users table.
type UserRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   core.Clock
}

func NewUserRepository(db *sql.DB, dialect Dialect, clock core.Clock) *UserRepository {
	return &UserRepository{db: db, dialect: dialect, clock: clock}
}

// Save inserts a new user and returns its generated id.
// It will set Created to now if it's not provided (null or zero).
func (r *UserRepository) Save(ctx context.Context, u *domain.User) (int64, error) {
	if !u.Created.Valid {
		u.Created = sql.NullTime{Time: r.clock.Now().UTC(), Valid: true}
	}

	query := `
        INSERT INTO users (username, password, retry_count, session_id, api_key, session_expiry, created, enabled)
        VALUES (` + r.dialect.placeholders(1, 8) + `)`

	var sessionExpiry any
	if u.SessionExpiry.Valid {
		sessionExpiry = r.dialect.formatTime(u.SessionExpiry.Time)
	}
	id, err := r.dialect.insertReturningID(ctx, r.db, query,
		u.Username,
		u.Password,
		u.RetryCount,
		u.SessionID,
		u.ApiKey,
		sessionExpiry,
		r.dialect.formatTime(u.Created.Time),
		u.Enabled,
	)
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, args ...any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Password,
		&u.RetryCount,
		&u.SessionID,
		&u.ApiKey,
		&u.SessionExpiry,
		&u.Created,
		&u.Enabled,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUsername fetches a user by exact username. Returns (nil, nil) if not found.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, `username = `+r.dialect.placeholder(1), username)
}

// FindById returns (nil, nil) if not found.
func (r *UserRepository) FindById(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, `id = `+r.dialect.placeholder(1), id)
}

// FindBySessionID fetches a user by session_id and ensures session_expiry is in the future.
func (r *UserRepository) FindBySessionID(ctx context.Context, sessionID string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx,
		`session_id = `+r.dialect.placeholder(1)+` AND session_expiry > `+r.dialect.placeholder(2),
		sessionID, r.dialect.formatTime(now))
}

// FindByApiKey fetches a user by api_key (exact match). Returns (nil, nil) if not found.
func (r *UserRepository) FindByApiKey(ctx context.Context, apiKey string) (*domain.User, error) {
	return r.findOne(ctx, `api_key = `+r.dialect.placeholder(1), apiKey)
}

// UpdateSession sets session_id and session_expiry for a user by id.
func (r *UserRepository) UpdateSession(ctx context.Context, userID int64, sessionID string, expiry time.Time) error {
	query := `
        UPDATE users
        SET session_id = ` + r.dialect.placeholder(1) + `, session_expiry = ` + r.dialect.placeholder(2) + `
        WHERE id = ` + r.dialect.placeholder(3)
	_, err := r.db.ExecContext(ctx, query, sessionID, r.dialect.formatTime(expiry), userID)
	return err
}

// ClearSessionBySessionID nulls session_id and session_expiry for the user with the given current session_id.
func (r *UserRepository) ClearSessionBySessionID(ctx context.Context, sessionID string) error {
	query := `
        UPDATE users
        SET session_id = NULL, session_expiry = NULL
        WHERE session_id = ` + r.dialect.placeholder(1)
	_, err := r.db.ExecContext(ctx, query, sessionID)
	return err
}

// DeleteById removes a user and everything shared with them.
func (r *UserRepository) DeleteById(ctx context.Context, id int64) error {
	return RunInTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM shared_workflow WHERE user_id = ` + r.dialect.placeholder(1),
			`DELETE FROM shared_credentials WHERE user_id = ` + r.dialect.placeholder(1),
			`DELETE FROM users WHERE id = ` + r.dialect.placeholder(1),
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindAll returns all users ordered by id ascending.
func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
