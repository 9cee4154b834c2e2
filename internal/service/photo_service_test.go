package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
	"github.com/araozmd/ancdotario-user-service/internal/photo"
	"github.com/araozmd/ancdotario-user-service/internal/repository"
)

func TestAttach(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, "identity-1", "John_Doe")

	resp := mustAttach(t, env, "identity-1", jpegPayload(t, 64, 48))

	if !strings.HasPrefix(resp.Photo.Key, "users/identity-1/photo_") {
		t.Errorf("Photo.Key = %q, want key under identity prefix", resp.Photo.Key)
	}
	if resp.Photo.Width != 64 || resp.Photo.Height != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48 (no upscale, no crop)", resp.Photo.Width, resp.Photo.Height)
	}
	if resp.Photo.OriginalSize <= 0 || resp.Photo.OutputSize <= 0 {
		t.Errorf("sizes = %d -> %d, want both positive", resp.Photo.OriginalSize, resp.Photo.OutputSize)
	}
	if resp.User.ImageURL == "" {
		t.Error("User.ImageURL empty after attach")
	}
	if !strings.Contains(resp.User.ImageURL, resp.Photo.Key) {
		t.Errorf("ImageURL = %q does not reference key %q", resp.User.ImageURL, resp.Photo.Key)
	}

	if keys := assetKeys(t, env, "identity-1"); len(keys) != 1 {
		t.Errorf("asset keys = %v, want exactly the new photo", keys)
	}
}

func TestAttachConstrainsOversizedImage(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, "identity-1", "John_Doe")

	resp := mustAttach(t, env, "identity-1", jpegPayload(t, 4000, 3000))

	if resp.Photo.Width > 1920 || resp.Photo.Height > 1080 {
		t.Errorf("dimensions = %dx%d, want within 1920x1080", resp.Photo.Width, resp.Photo.Height)
	}
	if resp.Photo.ReductionPercent <= 0 {
		t.Errorf("ReductionPercent = %v, want > 0 for a scaled-down image", resp.Photo.ReductionPercent)
	}
	if resp.User.ImageURL == "" {
		t.Error("User.ImageURL empty after attach")
	}
}

func TestAttachReplacesOldPhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, "identity-1", "John_Doe")

	first := mustAttach(t, env, "identity-1", jpegPayload(t, 40, 40))
	second := mustAttach(t, env, "identity-1", jpegPayload(t, 80, 80))

	if first.Photo.Key == second.Photo.Key {
		t.Fatalf("both uploads share key %q", first.Photo.Key)
	}

	keys := assetKeys(t, env, "identity-1")
	if len(keys) != 1 || keys[0] != second.Photo.Key {
		t.Errorf("asset keys = %v, want only %q", keys, second.Photo.Key)
	}

	user, err := env.repo.Get(ctx, "identity-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !strings.Contains(user.ImageURL, second.Photo.Key) {
		t.Errorf("ImageURL = %q, want it pointing at the new key", user.ImageURL)
	}
}

func TestAttachCompensatesFailedRecordUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, "identity-1", "John_Doe")
	first := mustAttach(t, env, "identity-1", jpegPayload(t, 40, 40))

	boom := errors.New("update exploded")
	failing := &failingUpdateRepo{UserRepository: env.repo, err: boom}
	photos := NewPhotoService(failing, env.store, env.cache, nickname.DefaultRules(), testPhotoConstraints())

	_, err := photos.Attach(ctx, caller("identity-1"), "identity-1", &domain.PhotoUploadRequest{Image: jpegPayload(t, 80, 80)})
	if !errors.Is(err, boom) {
		t.Fatalf("Attach() error = %v, want the update failure", err)
	}

	// The failed upload's object was compensated away; the previous photo
	// and record are untouched.
	keys := assetKeys(t, env, "identity-1")
	if len(keys) != 1 || keys[0] != first.Photo.Key {
		t.Errorf("asset keys = %v, want only the original %q", keys, first.Photo.Key)
	}
	user, err := env.repo.Get(ctx, "identity-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !strings.Contains(user.ImageURL, first.Photo.Key) {
		t.Errorf("ImageURL = %q, want it still pointing at %q", user.ImageURL, first.Photo.Key)
	}
}

func TestAttachValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, "identity-1", "John_Doe")

	t.Run("self only", func(t *testing.T) {
		_, err := env.photos.Attach(ctx, caller("identity-2"), "identity-1", &domain.PhotoUploadRequest{Image: jpegPayload(t, 10, 10)})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Attach() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("bad base64", func(t *testing.T) {
		_, err := env.photos.Attach(ctx, caller("identity-1"), "identity-1", &domain.PhotoUploadRequest{Image: "%%%not-base64%%%"})
		if !errors.Is(err, photo.ErrBadEncoding) {
			t.Errorf("Attach() error = %v, want ErrBadEncoding", err)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		payload := base64.StdEncoding.EncodeToString([]byte("plain text, definitely not pixels"))
		_, err := env.photos.Attach(ctx, caller("identity-1"), "identity-1", &domain.PhotoUploadRequest{Image: payload})
		if !errors.Is(err, photo.ErrUnsupportedFormat) {
			t.Errorf("Attach() error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("over size budget", func(t *testing.T) {
		constraints := testPhotoConstraints()
		constraints.MaxBytes = 16
		photos := NewPhotoService(env.repo, env.store, env.cache, nickname.DefaultRules(), constraints)
		_, err := photos.Attach(ctx, caller("identity-1"), "identity-1", &domain.PhotoUploadRequest{Image: jpegPayload(t, 40, 40)})
		if !errors.Is(err, photo.ErrTooLarge) {
			t.Errorf("Attach() error = %v, want ErrTooLarge", err)
		}
	})
}

func TestAttachCreatesUserOnFirstUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("without nickname", func(t *testing.T) {
		_, err := env.photos.Attach(ctx, caller("identity-1"), "identity-1", &domain.PhotoUploadRequest{Image: jpegPayload(t, 20, 20)})
		if !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("Attach() error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("with nickname", func(t *testing.T) {
		resp, err := env.photos.Attach(ctx, caller("identity-1"), "identity-1", &domain.PhotoUploadRequest{
			Image:    jpegPayload(t, 20, 20),
			Nickname: "fresh_user",
		})
		if err != nil {
			t.Fatalf("Attach() error = %v", err)
		}
		if resp.User.Nickname != "fresh_user" {
			t.Errorf("User.Nickname = %q, want fresh_user", resp.User.Nickname)
		}
		if resp.User.ImageURL == "" {
			t.Error("ImageURL empty after first-upload create")
		}

		if _, err := env.users.Lookup(ctx, "fresh_user"); err != nil {
			t.Errorf("Lookup(fresh_user) error = %v, want record created", err)
		}
	})

	t.Run("with taken nickname", func(t *testing.T) {
		_, err := env.photos.Attach(ctx, caller("identity-2"), "identity-2", &domain.PhotoUploadRequest{
			Image:    jpegPayload(t, 20, 20),
			Nickname: "fresh_user",
		})
		if !errors.Is(err, repository.ErrNicknameTaken) {
			t.Errorf("Attach() error = %v, want ErrNicknameTaken", err)
		}
	})
}

func TestDetach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, "identity-1", "John_Doe")
	attach := mustAttach(t, env, "identity-1", jpegPayload(t, 30, 30))

	t.Run("self only", func(t *testing.T) {
		_, err := env.photos.Detach(ctx, caller("identity-2"), "identity-1")
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Detach() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("removes photo and clears url", func(t *testing.T) {
		resp, err := env.photos.Detach(ctx, caller("identity-1"), "identity-1")
		if err != nil {
			t.Fatalf("Detach() error = %v", err)
		}
		if resp.User.ImageURL != "" {
			t.Errorf("ImageURL = %q after detach, want empty", resp.User.ImageURL)
		}
		if len(resp.RemovedKeys) != 1 || resp.RemovedKeys[0] != attach.Photo.Key {
			t.Errorf("RemovedKeys = %v, want [%s]", resp.RemovedKeys, attach.Photo.Key)
		}
		if keys := assetKeys(t, env, "identity-1"); len(keys) != 0 {
			t.Errorf("asset keys after detach = %v, want none", keys)
		}
	})

	t.Run("nothing to detach", func(t *testing.T) {
		_, err := env.photos.Detach(ctx, caller("identity-1"), "identity-1")
		if !errors.Is(err, ErrNoPhoto) {
			t.Errorf("Detach() error = %v, want ErrNoPhoto", err)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := env.photos.Detach(ctx, caller("identity-9"), "identity-9")
		if !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("Detach() error = %v, want ErrUserNotFound", err)
		}
	})
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, "identity-1", "John_Doe")

	t.Run("no photo yet", func(t *testing.T) {
		_, err := env.photos.Refresh(ctx, caller("identity-1"), "identity-1")
		if !errors.Is(err, ErrNoPhoto) {
			t.Errorf("Refresh() error = %v, want ErrNoPhoto", err)
		}
	})

	attach := mustAttach(t, env, "identity-1", jpegPayload(t, 30, 30))

	t.Run("self only", func(t *testing.T) {
		_, err := env.photos.Refresh(ctx, caller("identity-2"), "identity-1")
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Refresh() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("reissues url for current photo", func(t *testing.T) {
		resp, err := env.photos.Refresh(ctx, caller("identity-1"), "identity-1")
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if resp.Key != attach.Photo.Key {
			t.Errorf("Key = %q, want current photo %q", resp.Key, attach.Photo.Key)
		}
		if resp.ExpiresAt.IsZero() {
			t.Error("ExpiresAt not set")
		}
		if !strings.Contains(resp.User.ImageURL, attach.Photo.Key) {
			t.Errorf("ImageURL = %q, want it referencing %q", resp.User.ImageURL, attach.Photo.Key)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := env.photos.Refresh(ctx, caller("identity-9"), "identity-9")
		if !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("Refresh() error = %v, want ErrUserNotFound", err)
		}
	})
}
