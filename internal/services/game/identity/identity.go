// Package identity resolves who issued a command.
//
// Durable accounts are authenticated upstream and arrive as a plain user ID.
// Anonymous players receive a signed token scoped to one session; the token
// is the only credential an ephemeral identity ever has.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	"github.com/louisbranch/storydeck/internal/platform/id"
	"github.com/louisbranch/storydeck/internal/services/game/domain/actor"
)

// DefaultTTL is the lifetime of an ephemeral player identity.
const DefaultTTL = 7 * 24 * time.Hour

// Issuer is the iss claim of player tokens.
const Issuer = "storydeck"

// Credentials are the raw identity hints a transport extracted from a request.
type Credentials struct {
	UserID      string
	PlayerToken string
}

type credentialsKey struct{}

// WithCredentials stores request credentials in ctx.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the credentials stored in ctx.
func CredentialsFromContext(ctx context.Context) Credentials {
	if ctx == nil {
		return Credentials{}
	}
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}

// Provider resolves and mints actor identities.
type Provider interface {
	// CurrentActor returns the caller's identity for sessionID. A caller
	// without credentials for the session resolves to the zero Ref.
	CurrentActor(ctx context.Context, sessionID string) (actor.Ref, error)
	// Establish mints an ephemeral identity scoped to sessionID and returns
	// the token that proves it.
	Establish(ctx context.Context, sessionID string) (actor.Ref, string, error)
}

// Config configures the token provider.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
	NewID  func() (string, error)
}

// TokenProvider signs ephemeral identities as HS256 JWTs.
type TokenProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	newID  func() (string, error)
}

var _ Provider = (*TokenProvider)(nil)

// playerClaims is the claims type used for signing and parsing.
type playerClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// NewTokenProvider validates cfg and builds a provider.
func NewTokenProvider(cfg Config) (*TokenProvider, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("identity secret must be at least 16 bytes")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	return &TokenProvider{secret: cfg.Secret, ttl: cfg.TTL, now: cfg.Now, newID: cfg.NewID}, nil
}

// CurrentActor prefers a durable account and falls back to a player token
// issued for sessionID. Tokens for other sessions are ignored.
func (p *TokenProvider) CurrentActor(ctx context.Context, sessionID string) (actor.Ref, error) {
	creds := CredentialsFromContext(ctx)
	if userID := strings.TrimSpace(creds.UserID); userID != "" {
		return actor.Account(userID), nil
	}
	token := strings.TrimSpace(creds.PlayerToken)
	if token == "" {
		return actor.Ref{}, nil
	}
	claims, err := p.Verify(token)
	if err != nil {
		return actor.Ref{}, err
	}
	if sessionID != "" && claims.SessionID != sessionID {
		return actor.Ref{}, nil
	}
	return actor.Player(claims.Subject), nil
}

// Establish mints a new player identity for sessionID.
func (p *TokenProvider) Establish(ctx context.Context, sessionID string) (actor.Ref, string, error) {
	if err := ctx.Err(); err != nil {
		return actor.Ref{}, "", err
	}
	if strings.TrimSpace(sessionID) == "" {
		return actor.Ref{}, "", errors.New("session id is required")
	}
	playerID, err := p.newID()
	if err != nil {
		return actor.Ref{}, "", fmt.Errorf("generate player id: %w", err)
	}
	tokenID, err := p.newID()
	if err != nil {
		return actor.Ref{}, "", fmt.Errorf("generate token id: %w", err)
	}
	now := p.now().UTC()
	claims := playerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   playerID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
		SessionID: sessionID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return actor.Ref{}, "", fmt.Errorf("sign player token: %w", err)
	}
	return actor.Player(playerID), signed, nil
}

// PlayerClaims are the validated claims of a player token.
type PlayerClaims struct {
	Subject   string
	SessionID string
	ExpiresAt time.Time
}

// Verify checks the signature and expiry of a player token.
func (p *TokenProvider) Verify(token string) (PlayerClaims, error) {
	var parsed playerClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return PlayerClaims{}, mapJWTError(err)
	}
	if parsed.Issuer != Issuer {
		return PlayerClaims{}, apperrors.WithMetadata(
			apperrors.CodeTokenInvalid,
			"player token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if strings.TrimSpace(parsed.Subject) == "" || strings.TrimSpace(parsed.SessionID) == "" {
		return PlayerClaims{}, apperrors.New(apperrors.CodeTokenInvalid, "player token is missing claims")
	}
	if parsed.ExpiresAt == nil {
		return PlayerClaims{}, apperrors.New(apperrors.CodeTokenInvalid, "player token exp is required")
	}
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(p.now().UTC()) {
		return PlayerClaims{}, apperrors.New(apperrors.CodeTokenExpired, "player token is expired")
	}
	return PlayerClaims{Subject: parsed.Subject, SessionID: parsed.SessionID, ExpiresAt: exp}, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "player token signature is invalid", err)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "player token alg is invalid", err)
	}
	return apperrors.Wrap(apperrors.CodeTokenInvalid, "player token is invalid", err)
}
