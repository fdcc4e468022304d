package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func decodeID(t *testing.T, value string) uuid.UUID {
	t.Helper()
	raw, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		t.Fatalf("decode %q: %v", value, err)
	}
	parsed, err := uuid.FromBytes(raw)
	if err != nil {
		t.Fatalf("uuid from %q: %v", value, err)
	}
	return parsed
}

func TestNewIDIsLowercaseBase32UUID(t *testing.T) {
	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(value) != 26 {
		t.Fatalf("expected 26 characters, got %d in %q", len(value), value)
	}
	if strings.Trim(value, "abcdefghijklmnopqrstuvwxyz234567") != "" {
		t.Fatalf("expected lowercase base32 alphabet, got %q", value)
	}

	parsed := decodeID(t, value)
	if parsed.Version() != 4 {
		t.Fatalf("expected version 4, got %d", parsed.Version())
	}
	if parsed.Variant() != uuid.RFC4122 {
		t.Fatalf("expected RFC 4122 variant, got %s", parsed.Variant())
	}
}

func TestNewIDDoesNotRepeat(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for range 64 {
		value, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, dup := seen[value]; dup {
			t.Fatalf("duplicate id %q", value)
		}
		seen[value] = struct{}{}
	}
}

func TestSequenceCountsPerGenerator(t *testing.T) {
	sessions, players := Sequence("session"), Sequence("player")
	want := []string{"session-1", "player-1", "session-2"}
	got := make([]string, 0, len(want))
	for _, next := range []Generator{sessions, players, sessions} {
		value, err := next()
		if err != nil {
			t.Fatalf("sequence: %v", err)
		}
		got = append(got, value)
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSequenceIsSafeForConcurrentUse(t *testing.T) {
	next := Sequence("turn")
	values := make(chan string, 32)
	for range 32 {
		go func() {
			value, _ := next()
			values <- value
		}()
	}
	seen := make(map[string]struct{}, 32)
	for range 32 {
		value := <-values
		if _, dup := seen[value]; dup {
			t.Fatalf("duplicate id %q", value)
		}
		seen[value] = struct{}{}
	}
}
