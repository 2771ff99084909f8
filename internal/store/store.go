// Package store holds user credentials behind a small capability interface
// so the auth handlers stay storage-agnostic. Two implementations exist: an
// in-memory store for development and tests, and a Postgres store for real
// deployments.
package store

import (
	"context"
	"errors"

	"legalgpt/server/internal/model"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials covers both "no such user" and "wrong password"
	// so callers cannot tell registered emails apart from unregistered ones.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Store interface {
	// Create hashes the password and inserts a new user. The email
	// uniqueness check is atomic with the insert.
	Create(ctx context.Context, email, password, name string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.UserRecord, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Verify(ctx context.Context, email, password string) (*model.User, error)
}
