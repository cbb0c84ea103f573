package backup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/lingo/internal/db"
	"github.com/toeirei/lingo/internal/model"
)

func newStore(t *testing.T, name string) *db.Store {
	t.Helper()
	ctx := context.Background()
	s, err := db.Open(ctx, db.ProviderSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func user(id, email string) *model.User {
	return &model.User{
		ID:                 id,
		UserName:           email,
		NormalizedUserName: strings.ToUpper(email),
		Email:              email,
		NormalizedEmail:    strings.ToUpper(email),
		PasswordHash:       "hash",
		SecurityStamp:      "stamp-" + id,
		LockoutEnabled:     true,
		CreatedAt:          time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestWriteAndRestore(t *testing.T) {
	ctx := context.Background()
	src := newStore(t, "backup_src")
	for _, u := range []*model.User{user("u1", "ann@example.com"), user("u2", "bob@example.com")} {
		if err := src.CreateUser(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	var buf bytes.Buffer
	n, err := Write(ctx, src, &buf)
	if err != nil || n != 2 {
		t.Fatalf("write: n=%d err=%v", n, err)
	}

	dst := newStore(t, "backup_dst")
	if err := dst.CreateUser(ctx, user("u1", "ann@example.com")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := Restore(ctx, dst, bytes.NewReader(buf.Bytes()), false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if res.Created != 1 || res.Skipped != 1 || res.Updated != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	got, err := dst.FindUserByID(ctx, "u2")
	if err != nil || got.Email != "bob@example.com" {
		t.Fatalf("expected restored bob, got %+v, %v", got, err)
	}

	res, err = Restore(ctx, dst, bytes.NewReader(buf.Bytes()), true)
	if err != nil || res.Updated != 2 {
		t.Fatalf("overwrite restore: %+v, %v", res, err)
	}
}

func TestRead_RejectsGarbage(t *testing.T) {
	if _, err := Read(strings.NewReader("not zstd")); err == nil {
		t.Fatal("expected error for non-zstd input")
	}
}

func TestRestore_FailureLeavesNoPartialAccounts(t *testing.T) {
	ctx := context.Background()
	src := newStore(t, "backup_partial_src")
	for _, u := range []*model.User{user("u1", "ann@example.com"), user("u2", "bob@example.com")} {
		if err := src.CreateUser(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := Write(ctx, src, &buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	// u9 holds bob's user name, so inserting u2 fails after u1 went in.
	dst := newStore(t, "backup_partial_dst")
	if err := dst.CreateUser(ctx, user("u9", "bob@example.com")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := Restore(ctx, dst, bytes.NewReader(buf.Bytes()), false)
	if !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if res != (RestoreResult{}) {
		t.Fatalf("failed restore must report nothing, got %+v", res)
	}
	if _, err := dst.FindUserByID(ctx, "u1"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("u1 must be rolled back, got %v", err)
	}
	users, err := dst.ListUsers(ctx)
	if err != nil || len(users) != 1 || users[0].ID != "u9" {
		t.Fatalf("expected only the seeded account, got %+v, %v", users, err)
	}
}
