package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// countingRepo counts email lookups to observe cache hits and misses.
type countingRepo struct {
	*fakeUserRepo
	mu      sync.Mutex
	lookups int
}

func (r *countingRepo) FindByNormalizedEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return r.fakeUserRepo.FindByNormalizedEmail(ctx, email)
}

func (r *countingRepo) lookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

func TestPrincipalCacheAside(t *testing.T) {
	repo := &countingRepo{fakeUserRepo: newFakeUserRepo(
		&User{Username: "alice", Email: "A@B.com", Password: "x", Roles: []string{RoleAdmin}},
	)}
	cache := NewPrincipalCache(repo, NewMemoryPrincipalStore())
	ctx := context.Background()

	p, err := cache.Get(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Email != "a@b.com" || !p.HasRole(RoleAdmin) || !p.HasRole(RoleUser) {
		t.Fatalf("unexpected principal: %+v", p)
	}

	if _, err := cache.Get(ctx, "a@b.com"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if repo.lookupCount() != 1 {
		t.Fatalf("expected one store load, got %d", repo.lookupCount())
	}
}

func TestPrincipalCacheInvalidateForcesReload(t *testing.T) {
	repo := &countingRepo{fakeUserRepo: newFakeUserRepo(
		&User{Username: "alice", Email: "a@b.com", Password: "x"},
	)}
	cache := NewPrincipalCache(repo, NewMemoryPrincipalStore())
	ctx := context.Background()

	if _, err := cache.Get(ctx, "a@b.com"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := cache.Invalidate(ctx, "A@B.com"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.Get(ctx, "a@b.com"); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if repo.lookupCount() != 2 {
		t.Fatalf("expected reload after invalidate, loads=%d", repo.lookupCount())
	}
}

func TestPrincipalCacheUnknownKey(t *testing.T) {
	repo := &countingRepo{fakeUserRepo: newFakeUserRepo()}
	cache := NewPrincipalCache(repo, NewMemoryPrincipalStore())

	if _, err := cache.Get(context.Background(), "nouser@x.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestPrincipalCacheConcurrentGets(t *testing.T) {
	users := make([]*User, 0, 8)
	for i := 0; i < 8; i++ {
		users = append(users, &User{
			ID:       int64(i + 1),
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@x.com", i),
			Password: "x",
		})
	}
	repo := &countingRepo{fakeUserRepo: newFakeUserRepo(users...)}
	cache := NewPrincipalCache(repo, NewMemoryPrincipalStore())

	if err := cache.Invalidate(context.Background(), "user0@x.com"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 8; i++ {
				email := fmt.Sprintf("user%d@x.com", (worker+i)%8)
				if _, err := cache.Get(context.Background(), email); err != nil {
					errs <- err
					return
				}
			}
		}(worker)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent get: %v", err)
	}
}

func TestRedisPrincipalStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisPrincipalStore(client)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "a@b.com"); err != nil || ok {
		t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
	}

	p := Principal{UserID: 7, Username: "alice", Email: "a@b.com", Roles: []string{RoleUser}}
	if err := store.Set(ctx, "a@b.com", p); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := store.Get(ctx, "a@b.com")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.UserID != 7 || got.Username != "alice" || len(got.Roles) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := store.Delete(ctx, "a@b.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "a@b.com"); ok {
		t.Fatal("entry survived delete")
	}
}

func TestPrincipalCacheOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &countingRepo{fakeUserRepo: newFakeUserRepo(
		&User{Username: "alice", Email: "a@b.com", Password: "x"},
	)}
	cache := NewPrincipalCache(repo, NewRedisPrincipalStore(client))
	ctx := context.Background()

	if _, err := cache.Get(ctx, "a@b.com"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := cache.Get(ctx, "a@b.com"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if repo.lookupCount() != 1 {
		t.Fatalf("expected one store load, got %d", repo.lookupCount())
	}

	if err := cache.Invalidate(ctx, "a@b.com"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.Get(ctx, "a@b.com"); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if repo.lookupCount() != 2 {
		t.Fatalf("expected reload after invalidate, loads=%d", repo.lookupCount())
	}
}
