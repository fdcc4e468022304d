package domain

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/grpc/metadata"

	"github.com/louisbranch/storydeck/internal/platform/id"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
)

// Context is the identity and session state an MCP server carries between
// tool calls.
type Context struct {
	mu           sync.RWMutex
	userID       string
	tokens       map[string]string
	current string
}

// NewContext returns state acting as userID. An empty userID acts as an
// anonymous player who can only join sessions.
func NewContext(userID string) *Context {
	return &Context{userID: strings.TrimSpace(userID), tokens: map[string]string{}}
}

// UserID returns the account the server acts as.
func (c *Context) UserID() string {
	return c.userID
}

// CurrentSession returns the session last created or joined.
func (c *Context) CurrentSession() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Use marks sessionID as current and remembers its player token, if any.
func (c *Context) Use(sessionID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = sessionID
	if token != "" {
		c.tokens[sessionID] = token
	}
}

// Resolve returns sessionID, or the current session when it is empty.
func (c *Context) Resolve(sessionID string) string {
	if sessionID = strings.TrimSpace(sessionID); sessionID != "" {
		return sessionID
	}
	return c.CurrentSession()
}

// OutgoingContext attaches credentials for sessionID and a fresh invocation
// ID to ctx.
func (c *Context) OutgoingContext(ctx context.Context, sessionID string) (context.Context, error) {
	invocationID, err := id.NewID()
	if err != nil {
		return nil, err
	}
	pairs := []string{grpcmeta.InvocationIDHeader, invocationID}
	if c.userID != "" {
		pairs = append(pairs, grpcmeta.UserIDHeader, c.userID)
	}
	c.mu.RLock()
	token := c.tokens[sessionID]
	c.mu.RUnlock()
	if token != "" {
		pairs = append(pairs, grpcmeta.PlayerTokenHeader, token)
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...), nil
}
