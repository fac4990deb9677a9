package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository defines persistence operations for accounts. Lookups return
// (nil, nil) when no account matches; errors indicate a store fault.
type UserRepository interface {
	FindByNormalizedEmail(ctx context.Context, email string) (*User, error)
	FindByHandle(ctx context.Context, username string) (*User, error)
	Save(ctx context.Context, u *User) error
	Create(ctx context.Context, u *User) (int64, error)
	HasAdmin(ctx context.Context) (bool, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id, username, email, password, two_factor_enabled, two_factor_secret,
	auth_count, last_activity, last_online, registered, roles`

func (r *PgUserRepository) FindByNormalizedEmail(ctx context.Context, email string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=$1`
	return r.findOne(ctx, q, NormalizeEmail(email))
}

func (r *PgUserRepository) FindByHandle(ctx context.Context, username string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return r.findOne(ctx, q, username)
}

func (r *PgUserRepository) findOne(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.Password, &u.TwoFactorEnabled, &u.TwoFactorSecret,
		&u.AuthCount, &u.LastActivity, &u.LastOnline, &u.Registered, &u.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	return &u, nil
}

// Save persists the mutable account fields. Auth-relevant changes must be
// followed by a principal cache invalidation at the call site.
func (r *PgUserRepository) Save(ctx context.Context, u *User) error {
	const q = `UPDATE users SET password=$2, two_factor_enabled=$3, two_factor_secret=$4,
		auth_count=$5, last_activity=$6, last_online=$7, roles=$8 WHERE id=$1`
	tag, err := r.db.Exec(ctx, q,
		u.ID, u.Password, u.TwoFactorEnabled, u.TwoFactorSecret,
		u.AuthCount, u.LastActivity, u.LastOnline, u.Roles,
	)
	if err != nil {
		return fmt.Errorf("user save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user save: no account with id %d", u.ID)
	}
	return nil
}

func (r *PgUserRepository) Create(ctx context.Context, u *User) (int64, error) {
	const q = `INSERT INTO users (username, email, password, two_factor_enabled, two_factor_secret,
		auth_count, last_activity, last_online, registered, roles)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q,
		u.Username, NormalizeEmail(u.Email), u.Password, u.TwoFactorEnabled, u.TwoFactorSecret,
		u.AuthCount, u.LastActivity, u.LastOnline, u.Registered, u.Roles,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("user create: %w", err)
	}
	return id, nil
}

func (r *PgUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE $1 = ANY(roles) LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q, RoleAdmin).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("admin lookup: %w", err)
	}
	return true, nil
}
