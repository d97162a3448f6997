package core

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord represents a minimal projection stored in persistence layer.
type UserRecord struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	Create(ctx context.Context, username, email, passwordHash string) (int64, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	const q = `SELECT id, username, email, password_hash FROM users WHERE email=$1`
	var u UserRecord
	if err := r.db.QueryRow(ctx, q, email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	const q = `INSERT INTO users (username, email, password_hash) VALUES ($1,$2,$3) RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, q, username, email, passwordHash).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
