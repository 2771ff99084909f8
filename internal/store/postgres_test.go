package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"legalgpt/server/internal/db"
)

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("LEGALGPT_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("LEGALGPT_TEST_DB or DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
	}
	defer pool.Close()

	s := NewPostgresStore(pool)
	email := "pgstore." + time.Now().Format("150405.000000000") + "@example.local"

	user, err := s.Create(ctx, email, "secret1", "Ann")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	defer func() {
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	}()

	if _, err := s.Create(ctx, email, "other-pass", "Bob"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	found, err := s.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id error: %v", err)
	}
	if found.Email != email {
		t.Fatalf("unexpected user: %+v", found)
	}

	if _, err := s.Verify(ctx, email, "secret1"); err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if _, err := s.Verify(ctx, email, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
