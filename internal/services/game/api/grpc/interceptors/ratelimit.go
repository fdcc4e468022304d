package interceptors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
)

const (
	defaultCallsPerSecond = 20
	defaultCallBurst      = 40
	defaultLimiterIdle    = 10 * time.Minute
)

// RateLimitOptions configures RateLimitInterceptor.
type RateLimitOptions struct {
	CallsPerSecond float64
	Burst          int
	// Idle is how long an unused caller limiter is kept.
	Idle time.Duration
	Now  func() time.Time
}

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu      sync.Mutex
	opts    RateLimitOptions
	callers map[string]*callerLimiter
	swept   time.Time
}

// RateLimitInterceptor rejects calls once a caller exceeds its token bucket.
// Callers are keyed by account ID, then player token, then peer address.
func RateLimitInterceptor(opts RateLimitOptions) grpc.UnaryServerInterceptor {
	if opts.CallsPerSecond <= 0 {
		opts.CallsPerSecond = defaultCallsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultCallBurst
	}
	if opts.Idle <= 0 {
		opts.Idle = defaultLimiterIdle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	set := &limiterSet{opts: opts, callers: map[string]*callerLimiter{}}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !set.allow(callerKey(ctx)) {
			err := apperrors.New(apperrors.CodeRateLimited, "too many requests, slow down")
			return nil, apperrors.HandleError(err, grpcmeta.LocaleFromContext(ctx))
		}
		return handler(ctx, req)
	}
}

func (s *limiterSet) allow(key string) bool {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) > s.opts.Idle {
		for k, c := range s.callers {
			if now.Sub(c.lastSeen) > s.opts.Idle {
				delete(s.callers, k)
			}
		}
		s.swept = now
	}

	c, ok := s.callers[key]
	if !ok {
		c = &callerLimiter{limiter: rate.NewLimiter(rate.Limit(s.opts.CallsPerSecond), s.opts.Burst)}
		s.callers[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func callerKey(ctx context.Context) string {
	if userID := grpcmeta.UserIDFromContext(ctx); userID != "" {
		return "user:" + userID
	}
	if token := grpcmeta.PlayerTokenFromContext(ctx); token != "" {
		return "token:" + token
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "anonymous"
}
