package authcore

import (
	"context"
	"testing"

	"github.com/maximsenn/authcore/store/memstore"
)

func TestBuildRequiresUsers(t *testing.T) {
	cfg := testConfig()
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected Build to fail without a credential store")
	}
}

func TestBuildRejectsSharedSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Token.RefreshSecret = cfg.Token.AccessSecret

	if _, err := New().WithConfig(cfg).WithUsers(memstore.New()).Build(); err == nil {
		t.Fatal("expected Build to reject identical token secrets")
	}
}

func TestBuildRejectsMissingSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Token.AccessSecret = nil

	if _, err := New().WithConfig(cfg).WithUsers(memstore.New()).Build(); err == nil {
		t.Fatal("expected Build to reject missing secrets")
	}
}

func TestBuildWithoutRedisRunsUncached(t *testing.T) {
	ctx := context.Background()

	engine, err := New().WithConfig(testConfig()).WithUsers(memstore.New()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := engine.Register(ctx, RegisterInput{Email: "alice@x.com", Password: "pw12345678"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	pair, err := engine.Login(ctx, "alice@x.com", "pw12345678")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result := engine.Validate(ctx, pair.AccessToken); !result.Valid {
		t.Fatal("expected validation to work without a cache")
	}
}

func TestEngineNotReady(t *testing.T) {
	var e *Engine

	if _, err := e.Login(context.Background(), "a@x.com", "pw12345678"); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if result := e.Validate(context.Background(), "token"); result.Valid {
		t.Fatal("expected a nil engine to fail closed")
	}
}
