package network

import (
	"errors"
	"testing"
	"time"
)

func TestRotatorRoundRobin(t *testing.T) {
	r, err := NewRotator([]string{"http://a:1", " ", "http://b:2"}, time.Minute)
	if err != nil {
		t.Fatalf("NewRotator() error = %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	var got []string
	for i := 0; i < 3; i++ {
		proxy, err := r.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, proxy.Host)
	}
	want := []string{"a:1", "b:2", "a:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Next() sequence = %v, want %v", got, want)
		}
	}
}

func TestRotatorBansBlockedProxies(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r, err := NewRotator([]string{"http://a:1", "http://b:2"}, time.Minute)
	if err != nil {
		t.Fatalf("NewRotator() error = %v", err)
	}
	r.now = func() time.Time { return now }

	a, _ := r.Next()
	r.Report(a, 200)
	r.Report(a, 429)

	for i := 0; i < 3; i++ {
		proxy, err := r.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if proxy.Host != "b:2" {
			t.Fatalf("Next() = %s, want b:2 while a:1 is banned", proxy.Host)
		}
	}

	b, _ := r.Next()
	r.Report(b, 403)
	if _, err := r.Next(); !errors.Is(err, ErrNoProxies) {
		t.Fatalf("Next() error = %v, want ErrNoProxies", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() after ban expiry error = %v", err)
	}
}

func TestNewRotatorRejectsHostlessProxy(t *testing.T) {
	if _, err := NewRotator([]string{"not-a-proxy"}, 0); err == nil {
		t.Fatalf("NewRotator() error = nil, want error")
	}
}
