//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/navi/orderflow/internal/database/dbtest"
	"github.com/navi/orderflow/internal/idempotency/postgres"
	"github.com/navi/orderflow/internal/orders/ports"
)

const fixtureUsers = `
	INSERT INTO users (id, email) VALUES
		('11111111-1111-1111-1111-111111111111', 'ada@example.com'),
		('22222222-2222-2222-2222-222222222222', 'bob@example.com')
`

const (
	ada = "11111111-1111-1111-1111-111111111111"
	bob = "22222222-2222-2222-2222-222222222222"
)

func TestStoreSaveAndGet(t *testing.T) {
	pool := dbtest.NewPool(t)
	dbtest.Exec(t, pool, fixtureUsers)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	response := ports.StoredResponse{
		StatusCode: 201,
		Body:       []byte(`{"order": {"id": "test-order-1"}}`),
		OrderID:    "test-order-1",
	}

	if err := store.Save(ctx, ada, "key-1", response); err != nil {
		t.Fatalf("failed to save idempotency key: %v", err)
	}

	retrieved, err := store.Get(ctx, ada, "key-1")
	if err != nil {
		t.Fatalf("failed to get idempotency key: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected response, got nil")
	}
	if retrieved.StatusCode != response.StatusCode {
		t.Errorf("expected status code %d, got %d", response.StatusCode, retrieved.StatusCode)
	}
	if retrieved.OrderID != response.OrderID {
		t.Errorf("expected order ID %s, got %s", response.OrderID, retrieved.OrderID)
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	pool := dbtest.NewPool(t)
	dbtest.Exec(t, pool, fixtureUsers)
	store := postgres.NewStore(pool)

	retrieved, err := store.Get(context.Background(), ada, "nonexistent-key")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if retrieved != nil {
		t.Errorf("expected nil response, got %v", retrieved)
	}
}

func TestStoreSave_Conflict(t *testing.T) {
	pool := dbtest.NewPool(t)
	dbtest.Exec(t, pool, fixtureUsers)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	if err := store.Save(ctx, ada, "dup", ports.StoredResponse{StatusCode: 201, Body: []byte(`{}`), OrderID: "order-1"}); err != nil {
		t.Fatalf("failed to save first response: %v", err)
	}
	if err := store.Save(ctx, ada, "dup", ports.StoredResponse{StatusCode: 201, Body: []byte(`{}`), OrderID: "order-2"}); err != nil {
		t.Fatalf("failed to save second response (conflict): %v", err)
	}

	retrieved, err := store.Get(ctx, ada, "dup")
	if err != nil {
		t.Fatalf("failed to get response: %v", err)
	}
	if retrieved.OrderID != "order-1" {
		t.Errorf("expected first response to be preserved, got order ID %s", retrieved.OrderID)
	}
}

func TestStoreKeysAreScopedPerUser(t *testing.T) {
	pool := dbtest.NewPool(t)
	dbtest.Exec(t, pool, fixtureUsers)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	if err := store.Save(ctx, ada, "shared", ports.StoredResponse{StatusCode: 201, Body: []byte(`{}`), OrderID: "order-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	retrieved, err := store.Get(ctx, bob, "shared")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if retrieved != nil {
		t.Errorf("expected key to be invisible to another user, got %+v", retrieved)
	}
}

func TestStoreReserve(t *testing.T) {
	pool := dbtest.NewPool(t)
	dbtest.Exec(t, pool, fixtureUsers)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	if got, err := store.Reserve(ctx, ada, "key-1"); err != nil || got != nil {
		t.Fatalf("expected a fresh reservation, got %+v, %v", got, err)
	}
	if _, err := store.Reserve(ctx, ada, "key-1"); !errors.Is(err, ports.ErrIdempotencyKeyInUse) {
		t.Fatalf("expected ErrIdempotencyKeyInUse, got %v", err)
	}
	if got, err := store.Get(ctx, ada, "key-1"); err != nil || got != nil {
		t.Fatalf("expected a pending key to have no response, got %+v, %v", got, err)
	}

	if err := store.Save(ctx, ada, "key-1", ports.StoredResponse{StatusCode: 201, Body: []byte(`{}`), OrderID: "order-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Reserve(ctx, ada, "key-1")
	if err != nil {
		t.Fatalf("expected replay, got %v", err)
	}
	if got == nil || got.OrderID != "order-1" {
		t.Errorf("expected stored response, got %+v", got)
	}
}

func TestStoreRelease(t *testing.T) {
	pool := dbtest.NewPool(t)
	dbtest.Exec(t, pool, fixtureUsers)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, ada, "key-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.Release(ctx, ada, "key-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := store.Reserve(ctx, ada, "key-1"); err != nil {
		t.Errorf("expected the released key to be free, got %v", err)
	}
}

func TestStoreReserveTakesOverExpiredReservation(t *testing.T) {
	pool := dbtest.NewPool(t)
	dbtest.Exec(t, pool, fixtureUsers)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, ada, "key-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	dbtest.Exec(t, pool, `UPDATE idempotency_keys SET reserved_at = NOW() - INTERVAL '1 hour'`)

	if _, err := store.Reserve(ctx, ada, "key-1"); err != nil {
		t.Errorf("expected takeover of the expired reservation, got %v", err)
	}
}
