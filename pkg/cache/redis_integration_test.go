//go:build integration

package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wk755/httpserver/internal/testutil"
)

func freshEntry(body string) CachedEntry {
	now := time.Now()
	return CachedEntry{
		StatusLine: "HTTP/1.1 200 OK",
		Headers:    []Header{{Name: "Content-Type", Value: "text/plain"}},
		Body:       []byte(body),
		HardExpire: now.Add(5 * time.Minute),
		SoftExpire: now.Add(6 * time.Minute),
	}
}

func TestRedisStore_Integration_SetAndGet(t *testing.T) {
	store := NewRedisStore(testutil.StartRedis(t), "test", 1<<20)
	ctx := context.Background()
	k := CacheKey{Method: "GET", PathAndQuery: "/a", AcceptEncoding: "gzip"}

	entry := freshEntry("hello")
	if err := store.Set(ctx, k, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, k)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != "hello" {
		t.Errorf("Body = %q, want %q", got.Body, "hello")
	}
	if got.StatusLine != entry.StatusLine {
		t.Errorf("StatusLine = %q, want %q", got.StatusLine, entry.StatusLine)
	}
	if !got.HardExpire.Equal(entry.HardExpire) {
		t.Errorf("HardExpire = %v, want %v", got.HardExpire, entry.HardExpire)
	}

	// encoding is part of the key
	other := k
	other.AcceptEncoding = "br"
	if _, err := store.Get(ctx, other); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for other encoding, got %v", err)
	}
}

func TestRedisStore_Integration_TTL(t *testing.T) {
	client := testutil.StartRedis(t)
	store := NewRedisStore(client, "test", 1<<20)
	ctx := context.Background()
	k := key("/ttl")

	if err := store.Set(ctx, k, freshEntry("x")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := client.TTL(ctx, store.entryKey(indexMember(k))).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 5*time.Minute || ttl > 6*time.Minute {
		t.Errorf("TTL = %v, want between 5m and 6m", ttl)
	}

	// entries past SoftExpire are not written
	expired := freshEntry("old")
	expired.HardExpire = time.Now().Add(-2 * time.Minute)
	expired.SoftExpire = time.Now().Add(-time.Minute)
	_ = store.Set(ctx, key("/old"), expired)
	if _, err := store.Get(ctx, key("/old")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestRedisStore_Integration_Oversized(t *testing.T) {
	store := NewRedisStore(testutil.StartRedis(t), "test", 10)
	ctx := context.Background()

	if err := store.Set(ctx, key("/big"), freshEntry("far too large")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := store.Get(ctx, key("/big")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for oversized entry, got %v", err)
	}
}

func TestRedisStore_Integration_Delete(t *testing.T) {
	store := NewRedisStore(testutil.StartRedis(t), "test", 1<<20)
	ctx := context.Background()

	_ = store.Set(ctx, key("/a"), freshEntry("a"))
	if err := store.Delete(ctx, key("/a")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, key("/a")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestRedisStore_Integration_PurgePrefix(t *testing.T) {
	client := testutil.StartRedis(t)
	store := NewRedisStore(client, "test", 1<<20)
	ctx := context.Background()

	for _, p := range []string{"/a/1", "/a/2", "/a/\xff\xff", "/b/1", "/ab"} {
		if err := store.Set(ctx, key(p), freshEntry(p)); err != nil {
			t.Fatalf("Set(%s) failed: %v", p, err)
		}
	}

	if err := store.PurgePrefix(ctx, "/a/"); err != nil {
		t.Fatalf("PurgePrefix failed: %v", err)
	}

	for _, tt := range []struct {
		path     string
		wantGone bool
	}{
		{"/a/1", true},
		{"/a/2", true},
		{"/a/\xff\xff", true},
		{"/b/1", false},
		{"/ab", false},
	} {
		_, err := store.Get(ctx, key(tt.path))
		if gone := errors.Is(err, ErrCacheMiss); gone != tt.wantGone {
			t.Errorf("%s purged = %v, want %v (err %v)", tt.path, gone, tt.wantGone, err)
		}
	}

	members, err := client.ZCard(ctx, store.indexKey()).Result()
	if err != nil {
		t.Fatalf("ZCard failed: %v", err)
	}
	if members != 2 {
		t.Errorf("index members = %d, want 2", members)
	}

	if err := store.PurgePrefix(ctx, ""); err != nil {
		t.Fatalf("PurgePrefix(\"\") failed: %v", err)
	}
	if n, _ := client.ZCard(ctx, store.indexKey()).Result(); n != 0 {
		t.Errorf("index members after full purge = %d, want 0", n)
	}
}

func TestRedisStore_Integration_InvalidEntry(t *testing.T) {
	client := testutil.StartRedis(t)
	store := NewRedisStore(client, "test", 1<<20)
	ctx := context.Background()
	k := key("/bad")

	if err := client.Set(ctx, store.entryKey(indexMember(k)), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := store.Get(ctx, k); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestRedisStore_Integration_Middleware(t *testing.T) {
	store := NewRedisStore(testutil.StartRedis(t), "test", 1<<20)
	m := New(DefaultPolicy(), store, WithLogger(zerolog.Nop()))
	origin := testutil.NewOrigin()
	h := m.Handler(origin)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes?page=1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
	if got := origin.RequestCount(); got != 1 {
		t.Errorf("origin requests = %d, want 1", got)
	}

	if err := m.PurgePrefix(context.Background(), "/notes"); err != nil {
		t.Fatalf("PurgePrefix failed: %v", err)
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notes?page=1", nil))
	if got := origin.RequestCount(); got != 2 {
		t.Errorf("origin requests after purge = %d, want 2", got)
	}
}
