package repository

import (
	"context"
	"errors"
	"testing"
)

// testRepositoryContract runs the behavior every UserRepository must honor.
// Each subtest gets a fresh store.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) UserRepository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.CreateIfAbsent(ctx, "identity-1", "John_Doe")
		if err != nil {
			t.Fatalf("CreateIfAbsent() error = %v", err)
		}
		if created.Identity != "identity-1" {
			t.Errorf("Identity = %q, want %q", created.Identity, "identity-1")
		}
		if created.Nickname != "John_Doe" {
			t.Errorf("Nickname = %q, want original casing preserved", created.Nickname)
		}
		if created.NicknameNormalized != "john_doe" {
			t.Errorf("NicknameNormalized = %q, want %q", created.NicknameNormalized, "john_doe")
		}
		if created.ImageURL != "" {
			t.Errorf("ImageURL = %q, want empty on fresh record", created.ImageURL)
		}
		if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
			t.Error("timestamps not set on create")
		}

		got, err := repo.Get(ctx, "identity-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Nickname != created.Nickname {
			t.Errorf("Get() Nickname = %q, want %q", got.Nickname, created.Nickname)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Get(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("Get() error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("get by nickname is case-insensitive", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.CreateIfAbsent(ctx, "identity-1", "John_Doe"); err != nil {
			t.Fatalf("CreateIfAbsent() error = %v", err)
		}
		for _, nick := range []string{"John_Doe", "john_doe", "JOHN_DOE"} {
			got, err := repo.GetByNickname(ctx, nick)
			if err != nil {
				t.Fatalf("GetByNickname(%q) error = %v", nick, err)
			}
			if got.Identity != "identity-1" {
				t.Errorf("GetByNickname(%q) Identity = %q, want identity-1", nick, got.Identity)
			}
			if got.Nickname != "John_Doe" {
				t.Errorf("GetByNickname(%q) Nickname = %q, want original casing", nick, got.Nickname)
			}
		}
	})

	t.Run("get by nickname missing", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.GetByNickname(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("GetByNickname() error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("duplicate identity", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.CreateIfAbsent(ctx, "identity-1", "alice"); err != nil {
			t.Fatalf("CreateIfAbsent() error = %v", err)
		}
		if _, err := repo.CreateIfAbsent(ctx, "identity-1", "bob"); !errors.Is(err, ErrUserExists) {
			t.Errorf("CreateIfAbsent() error = %v, want ErrUserExists", err)
		}
	})

	t.Run("recreate same record", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.CreateIfAbsent(ctx, "identity-1", "alice"); err != nil {
			t.Fatalf("CreateIfAbsent() error = %v", err)
		}
		if _, err := repo.CreateIfAbsent(ctx, "identity-1", "alice"); !errors.Is(err, ErrUserExists) {
			t.Errorf("CreateIfAbsent() error = %v, want ErrUserExists over ErrNicknameTaken", err)
		}
	})

	t.Run("nickname taken by another identity", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.CreateIfAbsent(ctx, "identity-1", "alice"); err != nil {
			t.Fatalf("CreateIfAbsent() error = %v", err)
		}
		if _, err := repo.CreateIfAbsent(ctx, "identity-2", "alice"); !errors.Is(err, ErrNicknameTaken) {
			t.Errorf("CreateIfAbsent() error = %v, want ErrNicknameTaken", err)
		}
		// Uniqueness holds across casing.
		if _, err := repo.CreateIfAbsent(ctx, "identity-3", "ALICE"); !errors.Is(err, ErrNicknameTaken) {
			t.Errorf("CreateIfAbsent(ALICE) error = %v, want ErrNicknameTaken", err)
		}
	})

	t.Run("set and clear image url", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.CreateIfAbsent(ctx, "identity-1", "alice")
		if err != nil {
			t.Fatalf("CreateIfAbsent() error = %v", err)
		}

		updated, err := repo.SetImageURL(ctx, "identity-1", "https://cdn.example.com/photo.jpg")
		if err != nil {
			t.Fatalf("SetImageURL() error = %v", err)
		}
		if updated.ImageURL != "https://cdn.example.com/photo.jpg" {
			t.Errorf("ImageURL = %q after set", updated.ImageURL)
		}
		if updated.UpdatedAt.Before(created.UpdatedAt) {
			t.Error("UpdatedAt went backwards after SetImageURL")
		}

		got, err := repo.Get(ctx, "identity-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.ImageURL != updated.ImageURL {
			t.Errorf("Get() ImageURL = %q, want %q", got.ImageURL, updated.ImageURL)
		}

		cleared, err := repo.SetImageURL(ctx, "identity-1", "")
		if err != nil {
			t.Fatalf("SetImageURL(empty) error = %v", err)
		}
		if cleared.ImageURL != "" {
			t.Errorf("ImageURL = %q, want empty after clear", cleared.ImageURL)
		}
	})

	t.Run("set image url on missing user", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.SetImageURL(ctx, "nobody", "https://x/y.jpg"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("SetImageURL() error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("delete returns record and releases nickname", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.CreateIfAbsent(ctx, "identity-1", "alice"); err != nil {
			t.Fatalf("CreateIfAbsent() error = %v", err)
		}
		if _, err := repo.SetImageURL(ctx, "identity-1", "https://cdn.example.com/photo.jpg"); err != nil {
			t.Fatalf("SetImageURL() error = %v", err)
		}

		deleted, err := repo.Delete(ctx, "identity-1")
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if deleted.ImageURL == "" {
			t.Error("Delete() should return the record as it was, including image URL")
		}

		if _, err := repo.Get(ctx, "identity-1"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrUserNotFound", err)
		}
		if _, err := repo.GetByNickname(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("GetByNickname() after delete error = %v, want ErrUserNotFound", err)
		}

		// Nickname is free again.
		if _, err := repo.CreateIfAbsent(ctx, "identity-2", "alice"); err != nil {
			t.Errorf("CreateIfAbsent() after delete error = %v, want nickname released", err)
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Delete(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("Delete() error = %v, want ErrUserNotFound", err)
		}
	})
}
