package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"legalgpt/server/internal/crypto"
	"legalgpt/server/internal/model"
)

// MemoryStore keeps users in a map keyed by email. Check-then-insert runs
// under one mutex, so two concurrent registrations for the same email cannot
// both succeed.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]model.UserRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]model.UserRecord)}
}

func (s *MemoryStore) Create(_ context.Context, email, password, name string) (*model.User, error) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[email]; exists {
		return nil, ErrEmailTaken
	}

	record := model.UserRecord{
		User: model.User{
			ID:    uuid.NewString(),
			Email: email,
			Name:  name,
		},
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[email] = record

	user := record.User
	return &user, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*model.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &record, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.users {
		if record.ID == id {
			user := record.User
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) Verify(ctx context.Context, email, password string) (*model.User, error) {
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
