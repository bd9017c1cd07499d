package cache

import (
	"testing"
	"time"
)

func TestCachedEntry_Bytes(t *testing.T) {
	// 15 + 12 + 10 + 5
	e := CachedEntry{
		StatusLine: "HTTP/1.1 200 OK",
		Headers:    []Header{{Name: "Content-Type", Value: "text/plain"}},
		Body:       []byte("hello"),
	}
	if got := e.Bytes(); got != 42 {
		t.Errorf("Bytes() = %d, want 42", got)
	}

	var empty CachedEntry
	if got := empty.Bytes(); got != 0 {
		t.Errorf("empty Bytes() = %d, want 0", got)
	}
}

func TestCachedEntry_Clone(t *testing.T) {
	e := CachedEntry{
		StatusLine: "HTTP/1.1 200 OK",
		Headers:    []Header{{Name: "A", Value: "1"}},
		Body:       []byte("body"),
	}
	c := e.Clone()

	c.Headers[0].Value = "2"
	c.Body[0] = 'B'

	if e.Headers[0].Value != "1" {
		t.Error("Clone shares headers with the original")
	}
	if string(e.Body) != "body" {
		t.Error("Clone shares body with the original")
	}
}

func TestCachedEntry_Freshness(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := CachedEntry{
		HardExpire: base.Add(10 * time.Second),
		SoftExpire: base.Add(15 * time.Second),
	}

	tests := []struct {
		name string
		now  time.Time
		want Freshness
	}{
		{"just stored", base, Fresh},
		{"before hard expire", base.Add(9 * time.Second), Fresh},
		{"at hard expire", base.Add(10 * time.Second), Stale},
		{"inside grace window", base.Add(14 * time.Second), Stale},
		{"at soft expire", base.Add(15 * time.Second), Expired},
		{"long after", base.Add(time.Hour), Expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Freshness(tt.now); got != tt.want {
				t.Errorf("Freshness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCachedEntry_FreshnessMonotonic(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := CachedEntry{
		HardExpire: base.Add(3 * time.Second),
		SoftExpire: base.Add(5 * time.Second),
	}

	prev := Fresh
	for i := 0; i <= 20; i++ {
		got := e.Freshness(base.Add(time.Duration(i) * 500 * time.Millisecond))
		if got < prev {
			t.Fatalf("freshness went from %v back to %v at step %d", prev, got, i)
		}
		prev = got
	}
	if prev != Expired {
		t.Errorf("final freshness = %v, want expired", prev)
	}
}

func TestCachedEntry_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := CachedEntry{SoftExpire: now.Add(time.Minute)}

	if got := e.TTL(now); got != time.Minute {
		t.Errorf("TTL() = %v, want %v", got, time.Minute)
	}
	if got := e.TTL(now.Add(2 * time.Minute)); got != 0 {
		t.Errorf("TTL() after expiry = %v, want 0", got)
	}
}

func TestFreshness_String(t *testing.T) {
	tests := []struct {
		f    Freshness
		want string
	}{
		{Fresh, "fresh"},
		{Stale, "stale"},
		{Expired, "expired"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
