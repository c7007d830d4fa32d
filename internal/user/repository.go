package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrRoleNotFound   = errors.New("role not found")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	// SetRoles replaces the whole role set of the user.
	SetRoles(ctx context.Context, userID uuid.UUID, roles []Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	// EnsureRoles inserts the missing role rows.
	EnsureRoles(ctx context.Context, roles []Role) error
}

type postgresRepository struct {
	db *db.Postgres
}

func NewRepository(pg *db.Postgres) Repository {
	return &postgresRepository{db: pg}
}

func (r *postgresRepository) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate user ID: %w", err)
		}
		u.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, username, password, email, first_name, last_name, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Conn(ctx).Exec(ctx, query,
		u.ID,
		u.Username,
		u.Password,
		u.Email,
		u.FirstName,
		u.LastName,
		u.Enabled,
		now,
		now,
	)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, "users_username_key"):
			return ErrUsernameExists
		case db.IsUniqueViolation(err, "users_email_key"):
			return ErrEmailExists
		}
		return fmt.Errorf("repository: failed to insert user: %w", err)
	}

	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (r *postgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check username: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check email: %w", err)
	}
	return exists, nil
}

const selectUser = `
	SELECT u.id, u.username, u.password, u.email, u.first_name, u.last_name, u.enabled,
	       u.created_at, u.updated_at,
	       COALESCE(array_agg(r.name ORDER BY r.id) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id
`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.id = $1 GROUP BY u.id`, id)
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, selectUser+` WHERE u.username = $1 GROUP BY u.id`, username)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var (
		u     User
		roles []string
	)
	err := r.db.Conn(ctx).QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Password,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Enabled,
		&u.CreatedAt,
		&u.UpdatedAt,
		&roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user: %w", err)
	}

	u.Roles = toRoles(roles)
	return &u, nil
}

type userRow struct {
	ID        uuid.UUID      `db:"id"`
	Username  string         `db:"username"`
	Password  string         `db:"password"`
	Email     string         `db:"email"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Enabled   bool           `db:"enabled"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
	Roles     pq.StringArray `db:"roles"`
}

func (r *postgresRepository) List(ctx context.Context) ([]User, error) {
	var rows []userRow
	if err := r.db.SQLX().SelectContext(ctx, &rows, selectUser+` GROUP BY u.id ORDER BY u.created_at`); err != nil {
		return nil, fmt.Errorf("repository: failed to list users: %w", err)
	}

	users := make([]User, 0, len(rows))
	for _, row := range rows {
		users = append(users, User{
			ID:        row.ID,
			Username:  row.Username,
			Password:  row.Password,
			Email:     row.Email,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Enabled:   row.Enabled,
			Roles:     toRoles(row.Roles),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return users, nil
}

func (r *postgresRepository) SetRoles(ctx context.Context, userID uuid.UUID, roles []Role) error {
	conn := r.db.Conn(ctx)

	if _, err := conn.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("repository: failed to clear roles of user %s: %w", userID, err)
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.String())
	}

	cmdTag, err := conn.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = ANY($2)
	`, userID, names)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: failed to assign roles to user %s: %w", userID, err)
	}
	if int(cmdTag.RowsAffected()) != len(names) {
		return ErrRoleNotFound
	}

	_, err = conn.Exec(ctx, `UPDATE users SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("repository: failed to touch user %s: %w", userID, err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete user %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func toRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, Role(n))
	}
	return roles
}

func (r *postgresRepository) EnsureRoles(ctx context.Context, roles []Role) error {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.String())
	}

	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO roles (name)
		SELECT unnest($1::text[])
		ON CONFLICT (name) DO NOTHING
	`, names)
	if err != nil {
		return fmt.Errorf("repository: failed to ensure roles: %w", err)
	}
	return nil
}
