package command

import (
	"errors"
	"testing"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
)

func TestNewEncodesPayload(t *testing.T) {
	cmd, err := New(" join ", " s1 ", actor.Player("p"), JoinPayload{DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("new command: %v", err)
	}
	if cmd.Type != TypeJoin || cmd.SessionID != "s1" {
		t.Fatalf("expected trimmed fields, got %+v", cmd)
	}
	var payload JoinPayload
	if err := cmd.DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.DisplayName != "Ada" {
		t.Fatalf("expected Ada, got %q", payload.DisplayName)
	}
}

func TestDecodePayloadEmptyAndInvalid(t *testing.T) {
	var payload SetConnectedPayload
	if err := (Command{Type: TypeSetConnected}).DecodePayload(&payload); err != nil {
		t.Fatalf("expected empty payload to decode, got %v", err)
	}
	bad := Command{Type: TypeSetConnected, PayloadJSON: []byte("{")}
	if err := bad.DecodePayload(&payload); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRejectionErr(t *testing.T) {
	err := Reject(apperrors.CodeTurnViolation, "not your turn").Err()
	if !errors.Is(err, apperrors.New(apperrors.CodeTurnViolation, "")) {
		t.Fatalf("expected turn violation, got %v", err)
	}
}
