package game

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls GameService over a client connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes fullMethod with req and returns the decoded response.
func (c *Client) Call(ctx context.Context, fullMethod string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// CreateSession creates a session owned by the account on ctx.
func (c *Client) CreateSession(ctx context.Context, title, displayName string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.Call(ctx, CreateSessionMethod, map[string]any{"title": title, "display_name": displayName}, opts...)
}

// JoinSession joins by code.
func (c *Client) JoinSession(ctx context.Context, code, displayName string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.Call(ctx, JoinSessionMethod, map[string]any{"code": code, "display_name": displayName}, opts...)
}

// GetSession fetches the read model of a session.
func (c *Client) GetSession(ctx context.Context, sessionID string, opts ...grpc.CallOption) (map[string]any, error) {
	return c.Call(ctx, GetSessionMethod, map[string]any{"session_id": sessionID}, opts...)
}

// ApplyAction applies one action. payload may be nil.
func (c *Client) ApplyAction(ctx context.Context, sessionID, action string, payload map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	req := map[string]any{"session_id": sessionID, "action": action}
	if payload != nil {
		req["payload"] = payload
	}
	return c.Call(ctx, ApplyActionMethod, req, opts...)
}

// ListTurns lists drawn prompts, optionally filtered.
func (c *Client) ListTurns(ctx context.Context, sessionID, filter string, pageSize int, opts ...grpc.CallOption) (map[string]any, error) {
	req := map[string]any{"session_id": sessionID, "filter": filter}
	if pageSize > 0 {
		req["page_size"] = pageSize
	}
	return c.Call(ctx, ListTurnsMethod, req, opts...)
}
