package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"

	"github.com/louisbranch/storydeck/internal/platform/timeouts"
)

// GameClient is the subset of the game gRPC client the tools use.
type GameClient interface {
	CreateSession(ctx context.Context, title, displayName string, opts ...grpc.CallOption) (map[string]any, error)
	JoinSession(ctx context.Context, code, displayName string, opts ...grpc.CallOption) (map[string]any, error)
	GetSession(ctx context.Context, sessionID string, opts ...grpc.CallOption) (map[string]any, error)
	ApplyAction(ctx context.Context, sessionID, action string, payload map[string]any, opts ...grpc.CallOption) (map[string]any, error)
	ListTurns(ctx context.Context, sessionID, filter string, pageSize int, opts ...grpc.CallOption) (map[string]any, error)
}

var errSessionRequired = errors.New("session_id is required: create or join a session first")

// SessionResult is the output of tools that return a session.
type SessionResult struct {
	Session       map[string]any `json:"session" jsonschema:"session read model"`
	ParticipantID string         `json:"participant_id,omitempty" jsonschema:"participant seat of the caller, set by session_join"`
	Drawn         map[string]any `json:"drawn,omitempty" jsonschema:"prompt produced by a draw action"`
	Noop          bool           `json:"noop,omitempty" jsonschema:"true when the action changed nothing"`
}

// SessionCreateInput represents the MCP tool input for creating a session.
type SessionCreateInput struct {
	Title       string `json:"title" jsonschema:"session title"`
	DisplayName string `json:"display_name" jsonschema:"display name of the creator"`
}

// SessionCreateTool defines the MCP tool schema for creating a session.
func SessionCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_create",
		Description: "Creates a new game session owned by the configured account and seats it as the first player",
	}
}

// SessionCreateHandler executes a session create request.
func SessionCreateHandler(client GameClient, state *Context) mcp.ToolHandlerFor[SessionCreateInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionCreateInput) (*mcp.CallToolResult, SessionResult, error) {
		if state.UserID() == "" {
			return nil, SessionResult{}, errors.New("session_create requires a configured account")
		}
		callCtx, cancel, err := callContext(ctx, state, "")
		if err != nil {
			return nil, SessionResult{}, err
		}
		defer cancel()

		response, err := client.CreateSession(callCtx, input.Title, input.DisplayName)
		if err != nil {
			return nil, SessionResult{}, fmt.Errorf("session create failed: %w", err)
		}
		result, err := sessionResult(response)
		if err != nil {
			return nil, SessionResult{}, err
		}
		state.Use(stringOf(result.Session, "id"), "")
		return nil, result, nil
	}
}

// SessionJoinInput represents the MCP tool input for joining a session.
type SessionJoinInput struct {
	Code        string `json:"code" jsonschema:"six character join code"`
	DisplayName string `json:"display_name" jsonschema:"display name to join with"`
}

// SessionJoinTool defines the MCP tool schema for joining a session.
func SessionJoinTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_join",
		Description: "Joins a waiting session by its join code. Joining again with the same identity is a no-op",
	}
}

// SessionJoinHandler executes a session join request.
func SessionJoinHandler(client GameClient, state *Context) mcp.ToolHandlerFor[SessionJoinInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionJoinInput) (*mcp.CallToolResult, SessionResult, error) {
		callCtx, cancel, err := callContext(ctx, state, "")
		if err != nil {
			return nil, SessionResult{}, err
		}
		defer cancel()

		response, err := client.JoinSession(callCtx, input.Code, input.DisplayName)
		if err != nil {
			return nil, SessionResult{}, fmt.Errorf("session join failed: %w", err)
		}
		result, err := sessionResult(response)
		if err != nil {
			return nil, SessionResult{}, err
		}
		result.ParticipantID = stringOf(response, "participant_id")
		result.Noop, _ = response["noop"].(bool)
		state.Use(stringOf(result.Session, "id"), stringOf(response, "player_token"))
		return nil, result, nil
	}
}

// SessionGetInput represents the MCP tool input for reading a session.
type SessionGetInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier, defaults to the current session"`
}

// SessionGetTool defines the MCP tool schema for reading a session.
func SessionGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_get",
		Description: "Returns the current state of a session: phase, turn holder, participants, readiness and sub-states",
	}
}

// SessionGetHandler executes a session read request.
func SessionGetHandler(client GameClient, state *Context) mcp.ToolHandlerFor[SessionGetInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionGetInput) (*mcp.CallToolResult, SessionResult, error) {
		sessionID := state.Resolve(input.SessionID)
		if sessionID == "" {
			return nil, SessionResult{}, errSessionRequired
		}
		callCtx, cancel, err := callContext(ctx, state, sessionID)
		if err != nil {
			return nil, SessionResult{}, err
		}
		defer cancel()

		response, err := client.GetSession(callCtx, sessionID)
		if err != nil {
			return nil, SessionResult{}, fmt.Errorf("session get failed: %w", err)
		}
		result, err := sessionResult(response)
		if err != nil {
			return nil, SessionResult{}, err
		}
		return nil, result, nil
	}
}

// SessionApplyInput represents the MCP tool input for applying an action.
type SessionApplyInput struct {
	SessionID string         `json:"session_id,omitempty" jsonschema:"session identifier, defaults to the current session"`
	Action    string         `json:"action" jsonschema:"action name such as set_location, start, draw_face, toggle_ready, draw_numbered, select_topic"`
	Payload   map[string]any `json:"payload,omitempty" jsonschema:"action arguments such as location for set_location or topic for select_topic"`
}

// SessionApplyTool defines the MCP tool schema for applying an action.
func SessionApplyTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_apply",
		Description: "Applies one game action as the caller. Rejections explain the phase, turn or permission rule that failed",
	}
}

// SessionApplyHandler executes an action request.
func SessionApplyHandler(client GameClient, state *Context) mcp.ToolHandlerFor[SessionApplyInput, SessionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionApplyInput) (*mcp.CallToolResult, SessionResult, error) {
		sessionID := state.Resolve(input.SessionID)
		if sessionID == "" {
			return nil, SessionResult{}, errSessionRequired
		}
		action := strings.TrimSpace(input.Action)
		if action == "" {
			return nil, SessionResult{}, errors.New("action is required")
		}
		callCtx, cancel, err := callContext(ctx, state, sessionID)
		if err != nil {
			return nil, SessionResult{}, err
		}
		defer cancel()

		response, err := client.ApplyAction(callCtx, sessionID, action, input.Payload)
		if err != nil {
			return nil, SessionResult{}, fmt.Errorf("%s failed: %w", action, err)
		}
		result, err := sessionResult(response)
		if err != nil {
			return nil, SessionResult{}, err
		}
		result.Drawn, _ = response["drawn"].(map[string]any)
		result.Noop, _ = response["noop"].(bool)
		return nil, result, nil
	}
}

// TurnsListInput represents the MCP tool input for listing turns.
type TurnsListInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session identifier, defaults to the current session"`
	Filter    string `json:"filter,omitempty" jsonschema:"AIP-160 filter over participant_id, kind, phase, cycle, face_id, value"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum number of turns to return (default 50, max 100)"`
}

// TurnsListResult represents the MCP tool output for listing turns.
type TurnsListResult struct {
	Turns []any `json:"turns" jsonschema:"drawn prompts in draw order"`
}

// TurnsListTool defines the MCP tool schema for listing turns.
func TurnsListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "turns_list",
		Description: "Lists the prompts drawn in a session, oldest first",
	}
}

// TurnsListHandler executes a turn listing request.
func TurnsListHandler(client GameClient, state *Context) mcp.ToolHandlerFor[TurnsListInput, TurnsListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TurnsListInput) (*mcp.CallToolResult, TurnsListResult, error) {
		sessionID := state.Resolve(input.SessionID)
		if sessionID == "" {
			return nil, TurnsListResult{}, errSessionRequired
		}
		callCtx, cancel, err := callContext(ctx, state, sessionID)
		if err != nil {
			return nil, TurnsListResult{}, err
		}
		defer cancel()

		response, err := client.ListTurns(callCtx, sessionID, input.Filter, input.PageSize)
		if err != nil {
			return nil, TurnsListResult{}, fmt.Errorf("turns list failed: %w", err)
		}
		turns, _ := response["turns"].([]any)
		if turns == nil {
			turns = []any{}
		}
		return nil, TurnsListResult{Turns: turns}, nil
	}
}

func callContext(ctx context.Context, state *Context, sessionID string) (context.Context, context.CancelFunc, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	callCtx, err := state.OutgoingContext(runCtx, sessionID)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create request metadata: %w", err)
	}
	return callCtx, cancel, nil
}

func sessionResult(response map[string]any) (SessionResult, error) {
	session, ok := response["session"].(map[string]any)
	if !ok {
		return SessionResult{}, errors.New("session response is missing")
	}
	return SessionResult{Session: session}, nil
}

func stringOf(values map[string]any, key string) string {
	value, _ := values[key].(string)
	return value
}
