// Package actor defines the polymorphic reference to whoever issued a
// command: a durable account or an ephemeral per-session player identity.
// Domain code compares references for equality and never branches on kind.
package actor

import (
	"fmt"
	"strings"
)

// Kind labels the identity source.
type Kind string

const (
	KindAccount Kind = "account"
	KindPlayer  Kind = "player"
)

// Ref is an opaque actor reference.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Account returns a durable account reference.
func Account(id string) Ref {
	return Ref{Kind: KindAccount, ID: strings.TrimSpace(id)}
}

// Player returns an ephemeral player reference.
func Player(id string) Ref {
	return Ref{Kind: KindPlayer, ID: strings.TrimSpace(id)}
}

// IsZero reports whether r is unset.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// IsDurable reports whether r is an account.
func (r Ref) IsDurable() bool {
	return r.Kind == KindAccount && r.ID != ""
}

// String renders r as "kind:id".
func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.Kind) + ":" + r.ID
}

// Parse reverses String.
func Parse(value string) (Ref, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || strings.TrimSpace(id) == "" {
		return Ref{}, fmt.Errorf("invalid actor reference %q", value)
	}
	switch Kind(kind) {
	case KindAccount:
		return Account(id), nil
	case KindPlayer:
		return Player(id), nil
	default:
		return Ref{}, fmt.Errorf("unknown actor kind %q", kind)
	}
}
