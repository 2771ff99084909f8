package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"legalgpt/server/internal/crypto"
	"legalgpt/server/internal/model"
)

const uniqueViolation = "23505"

// PostgresStore relies on the unique index on users.email for the atomic
// check-then-insert; a concurrent duplicate surfaces as ErrEmailTaken.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, email, password, name string) (*model.User, error) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  name,
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.Name, hash, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*model.UserRecord, error) {
	var record model.UserRecord
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(&record.ID, &record.Email, &record.Name, &record.PasswordHash, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, name
		FROM users
		WHERE id = $1
	`, id)
	err := row.Scan(&user.ID, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) Verify(ctx context.Context, email, password string) (*model.User, error) {
	record, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := crypto.CheckPassword(record.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	user := record.User
	return &user, nil
}
