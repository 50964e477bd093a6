package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/maximsenn/authcore/store"
)

func TestRegisterDefaultsAndNormalizesEmail(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	profile, err := e.Register(ctx, RegisterInput{
		Email:    "  Alice@X.com ",
		Password: "pw12345678",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if profile.Email != "alice@x.com" {
		t.Fatalf("expected normalized email, got %q", profile.Email)
	}
	if profile.Role != RoleUser || !profile.IsActive {
		t.Fatalf("expected an active default-role account, got %+v", profile)
	}
	if profile.ID == "" {
		t.Fatal("expected an assigned id")
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing email", RegisterInput{Password: "pw12345678"}, ErrInvalidEmail},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "pw12345678"}, ErrInvalidEmail},
		{"short password", RegisterInput{Email: "a@x.com", Password: "short"}, ErrWeakPassword},
		{"bad role", RegisterInput{Email: "a@x.com", Password: "pw12345678", Role: "emperor"}, ErrInvalidRole},
	}
	for _, tc := range cases {
		if _, err := e.Register(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	registerUser(t, e, "alice@x.com", "pw12345678")

	_, err := e.Register(ctx, RegisterInput{Email: "ALICE@x.com", Password: "pw12345678"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if e.metrics.Value(MetricAccountCreationDuplicate) != 1 {
		t.Fatal("expected a duplicate-creation metric")
	}
}

func TestRegisterExplicitRole(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	profile, err := e.Register(ctx, RegisterInput{
		Email:    "mod@x.com",
		Password: "pw12345678",
		Role:     "moderator",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if profile.Role != RoleModerator {
		t.Fatalf("expected moderator, got %s", profile.Role)
	}
}

func TestGetUserServesFromCache(t *testing.T) {
	ctx := context.Background()
	e, users := newTestEngine(t)

	profile := registerUser(t, e, "alice@x.com", "pw12345678")

	first, err := e.GetUser(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}

	// A store-level mutation that bypasses the engine is invisible until
	// eviction.
	name := "Changed"
	if _, err := users.Update(ctx, profile.ID, store.Patch{FirstName: &name}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	cached, err := e.GetUser(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if cached.FirstName != first.FirstName {
		t.Fatal("expected the cached profile to be served")
	}

	if err := e.EvictCache(ctx, CacheKindUser, profile.ID); err != nil {
		t.Fatalf("EvictCache failed: %v", err)
	}
	fresh, err := e.GetUser(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if fresh.FirstName != "Changed" {
		t.Fatal("expected a fresh read after eviction")
	}
}

func TestGetUserUnknown(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if _, err := e.GetUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersEvictedByMutations(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	registerUser(t, e, "alice@x.com", "pw12345678")

	profiles, err := e.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}

	// Registration evicts the cached list, so the new account shows up.
	if _, err := e.Register(ctx, RegisterInput{Email: "bob@x.com", Password: "pw12345678"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	profiles, err = e.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles after registration, got %d", len(profiles))
	}
}

func TestUpdateUserPatchSemantics(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	profile := registerUser(t, e, "alice@x.com", "pw12345678")

	role := "admin"
	updated, err := e.UpdateUser(ctx, profile.ID, UpdateUserInput{Role: &role})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Role != RoleAdmin {
		t.Fatalf("expected admin, got %s", updated.Role)
	}
	if updated.Email != "alice@x.com" || updated.FirstName != "Alice" {
		t.Fatal("expected untouched fields to survive the patch")
	}

	bad := "emperor"
	if _, err := e.UpdateUser(ctx, profile.ID, UpdateUserInput{Role: &bad}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestPasswordChangeKillsRefreshChain(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	profile := registerUser(t, e, "alice@x.com", "pw12345678")
	pair, err := e.Login(ctx, "alice@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	next := "completely-new-pw"
	if _, err := e.UpdateUser(ctx, profile.ID, UpdateUserInput{Password: &next}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh after password change to fail, got %v", err)
	}
	if _, err := e.Login(ctx, "alice@x.com", next); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	profile := registerUser(t, e, "alice@x.com", "pw12345678")
	pair, err := e.Login(ctx, "alice@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result := e.Validate(ctx, pair.AccessToken); !result.Valid {
		t.Fatal("expected a valid verdict before deletion")
	}

	if err := e.DeleteUser(ctx, profile.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := e.GetUser(ctx, profile.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after deletion, got %v", err)
	}
	if result := e.Validate(ctx, pair.AccessToken); result.Valid {
		t.Fatal("expected an invalid verdict after deletion")
	}
	if err := e.DeleteUser(ctx, profile.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestEvictCacheUnknownKind(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if err := e.EvictCache(ctx, "everything", "u1"); err == nil {
		t.Fatal("expected an error for an unknown cache kind")
	}
}
