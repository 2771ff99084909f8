package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user, err := s.Create(ctx, "a@b.com", "secret1", "Ann")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if user.ID == "" || user.Email != "a@b.com" || user.Name != "Ann" {
		t.Fatalf("unexpected user: %+v", user)
	}

	record, err := s.FindByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if record.PasswordHash == "" || record.PasswordHash == "secret1" {
		t.Fatalf("password not hashed")
	}

	found, err := s.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id error: %v", err)
	}
	if found.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", found)
	}
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Create(ctx, "a@b.com", "secret1", "Ann"); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := s.Create(ctx, "a@b.com", "other-pass", "Bob"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestMemoryStoreEmailCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Create(ctx, "a@b.com", "secret1", "Ann"); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if _, err := s.Create(ctx, "A@b.com", "secret1", "Ann"); err != nil {
		t.Fatalf("expected case-sensitive emails, got %v", err)
	}
}

func TestMemoryStoreConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, "a@b.com", "secret1", "Ann")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	taken := 0
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || taken != attempts-1 {
		t.Fatalf("expected exactly one creation, got %d created / %d taken", created, taken)
	}
}

func TestMemoryStoreVerify(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Create(ctx, "a@b.com", "secret1", "Ann"); err != nil {
		t.Fatalf("create error: %v", err)
	}

	user, err := s.Verify(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if user.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	// Unknown email and wrong password are indistinguishable.
	_, wrongPass := s.Verify(ctx, "a@b.com", "wrong")
	_, noUser := s.Verify(ctx, "missing@b.com", "secret1")
	if !errors.Is(wrongPass, ErrInvalidCredentials) || !errors.Is(noUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPass, noUser)
	}
}
