package game

import (
	"context"
	"fmt"
	"math"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/storydeck/internal/services/game/domain/command"
	"github.com/louisbranch/storydeck/internal/services/game/gateway"
)

// Service implements GameServiceServer over a gateway.
type Service struct {
	gateway *gateway.Gateway
}

var _ GameServiceServer = (*Service)(nil)

// NewService creates a GameService backed by gw.
func NewService(gw *gateway.Gateway) *Service {
	return &Service{gateway: gw}
}

// CreateSession creates a session owned by the calling account.
func (s *Service) CreateSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	snap, err := s.gateway.CreateSession(ctx, gateway.CreateInput{
		Title:       stringField(in, "title"),
		DisplayName: stringField(in, "display_name"),
	})
	if err != nil {
		return nil, handleError(ctx, err)
	}
	view := viewOf(snap, snap.Session.Creator)
	return respond(ctx, map[string]any{"session": sessionViewToMap(view)})
}

// JoinSession seats the caller in the session with the given code. Callers
// without an identity receive a player token in the response body and in
// the response header.
func (s *Service) JoinSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	code := stringField(in, "code")
	if code == "" {
		return nil, handleError(ctx, apperrors.New(apperrors.CodeValidation, "code is required"))
	}
	joined, err := s.gateway.Join(ctx, code, stringField(in, "display_name"))
	if err != nil {
		return nil, handleError(ctx, err)
	}
	if joined.PlayerToken != "" {
		if err := grpc.SetHeader(ctx, metadata.Pairs(grpcmeta.PlayerTokenHeader, joined.PlayerToken)); err != nil {
			return nil, handleError(ctx, fmt.Errorf("set player token header: %w", err))
		}
	}
	view := viewOf(joined.Snapshot, joined.Actor)
	return respond(ctx, map[string]any{
		"session":        sessionViewToMap(view),
		"participant_id": joined.ParticipantID,
		"player_token":   joined.PlayerToken,
		"noop":           joined.Noop,
	})
}

// GetSession returns the read model of one session.
func (s *Service) GetSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := requireSessionID(in)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	view, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	return respond(ctx, map[string]any{"session": sessionViewToMap(view)})
}

// ApplyAction applies one named action with its payload.
func (s *Service) ApplyAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := requireSessionID(in)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	action := stringField(in, "action")
	if action == "" {
		return nil, handleError(ctx, apperrors.New(apperrors.CodeValidation, "action is required"))
	}
	var payload any
	if value, ok := in.GetFields()["payload"]; ok && value.GetStructValue() != nil {
		payload = value.GetStructValue().AsMap()
	}

	result, err := s.gateway.Apply(ctx, sessionID, command.Type(action), payload)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	out := map[string]any{
		"session":  sessionViewToMap(viewOf(result.Snapshot, result.Actor)),
		"noop":     result.Noop,
		"attempts": result.Attempts,
	}
	if result.Drawn != nil {
		out["drawn"] = promptToMap(*result.Drawn)
	}
	return respond(ctx, out)
}

// ListTurns returns the turn ledger of one session.
func (s *Service) ListTurns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := requireSessionID(in)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	pageSize := 0
	if value, ok := in.GetFields()["page_size"]; ok {
		n := value.GetNumberValue()
		if n < 0 || n > math.MaxInt32 || n != math.Trunc(n) {
			return nil, handleError(ctx, apperrors.New(apperrors.CodeValidation, "page_size must be a positive integer"))
		}
		pageSize = int(n)
	}
	records, err := s.gateway.ListTurns(ctx, sessionID, stringField(in, "filter"), pageSize)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	turns := make([]any, 0, len(records))
	for _, record := range records {
		turns = append(turns, turnToMap(record))
	}
	return respond(ctx, map[string]any{"turns": turns})
}

func requireSessionID(in *structpb.Struct) (string, error) {
	sessionID := stringField(in, "session_id")
	if sessionID == "" {
		return "", apperrors.New(apperrors.CodeValidation, "session_id is required")
	}
	return sessionID, nil
}

func stringField(in *structpb.Struct, name string) string {
	value, ok := in.GetFields()[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(value.GetStringValue())
}

func respond(ctx context.Context, out map[string]any) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(out)
	if err != nil {
		return nil, handleError(ctx, fmt.Errorf("encode response: %w", err))
	}
	return msg, nil
}

func handleError(ctx context.Context, err error) error {
	return apperrors.HandleError(err, grpcmeta.LocaleFromContext(ctx))
}
