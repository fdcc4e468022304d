package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/grpc/metadata"

	apperrors "github.com/louisbranch/storydeck/internal/platform/errors"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
)

const (
	stepCreate      = "create"
	stepJoin        = "join"
	stepAction      = "action"
	stepExpect      = "expect"
	stepExpectError = "expect_error"
	stepTurns       = "turns"
)

// accountPrefix namespaces the user IDs given to account players.
const accountPrefix = "scenario-"

// player is the credential and seat one alias plays with.
type player struct {
	userID        string
	token         string
	participantID string
}

type scenarioState struct {
	sessionID string
	code      string
	players   map[string]*player
}

func newScenarioState() *scenarioState {
	return &scenarioState{players: map[string]*player{}}
}

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case stepCreate:
		return r.runCreateStep(ctx, state, step)
	case stepJoin:
		return r.runJoinStep(ctx, state, step)
	case stepAction:
		return r.runActionStep(ctx, state, step)
	case stepExpect:
		return r.runExpectStep(ctx, state, step)
	case stepExpectError:
		return r.runExpectErrorStep(ctx, state, step)
	case stepTurns:
		return r.runTurnsStep(ctx, state, step)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runCreateStep(ctx context.Context, state *scenarioState, step Step) error {
	alias := optionalString(step.Args, "as", "")
	if alias == "" {
		return r.failf("create requires as")
	}
	if state.sessionID != "" {
		return r.failf("scenario already created session %s", state.sessionID)
	}
	p := &player{userID: accountPrefix + alias}
	state.players[alias] = p

	resp, err := r.client.CreateSession(
		playerContext(ctx, p),
		optionalString(step.Args, "title", ""),
		optionalString(step.Args, "name", alias),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session := sessionOf(resp)
	state.sessionID = stringOf(session["id"])
	state.code = stringOf(session["code"])
	p.participantID = stringOf(session["viewer_id"])
	if state.sessionID == "" || p.participantID == "" {
		return r.failf("create returned an incomplete session: %v", session)
	}
	r.logf("session created: id=%s code=%s creator=%s", state.sessionID, state.code, p.participantID)
	return nil
}

func (r *Runner) runJoinStep(ctx context.Context, state *scenarioState, step Step) error {
	if err := r.requireSession(state); err != nil {
		return err
	}
	alias := optionalString(step.Args, "as", "")
	if alias == "" {
		return r.failf("join requires as")
	}
	p, ok := state.players[alias]
	if !ok {
		p = &player{}
		if optionalBool(step.Args, "account", false) {
			p.userID = accountPrefix + alias
		}
		state.players[alias] = p
	}

	resp, err := r.client.JoinSession(playerContext(ctx, p), state.code, optionalString(step.Args, "name", alias))
	if err != nil {
		return fmt.Errorf("join session: %w", err)
	}
	if token := stringOf(resp["player_token"]); token != "" {
		p.token = token
	}
	p.participantID = stringOf(resp["participant_id"])
	r.logf("participant joined: alias=%s id=%s account=%t", alias, p.participantID, p.userID != "")
	return nil
}

func (r *Runner) runActionStep(ctx context.Context, state *scenarioState, step Step) error {
	callCtx, action, payload, err := r.actionCall(ctx, state, step)
	if err != nil {
		return err
	}
	resp, err := r.client.ApplyAction(callCtx, state.sessionID, action, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if drawn, ok := resp["drawn"].(map[string]any); ok {
		r.logf("drawn: %s", stringOf(drawn["label"]))
	}
	return nil
}

func (r *Runner) runExpectErrorStep(ctx context.Context, state *scenarioState, step Step) error {
	want := optionalString(step.Args, "code", "")
	callCtx, action, payload, err := r.actionCall(ctx, state, step)
	if err != nil {
		return err
	}
	delete(payload, "code")
	_, err = r.client.ApplyAction(callCtx, state.sessionID, action, payload)
	if err == nil {
		return r.assertf("expected %s to fail", action)
	}
	got := apperrors.FromGRPCStatus(err).Code
	if want != "" && string(got) != want {
		return r.assertf("expected %s to fail with %s, got %s (%v)", action, want, got, err)
	}
	r.logf("rejected as expected: action=%s code=%s", action, got)
	return nil
}

func (r *Runner) runExpectStep(ctx context.Context, state *scenarioState, step Step) error {
	if err := r.requireSession(state); err != nil {
		return err
	}
	callCtx, err := r.aliasContext(ctx, state, optionalString(step.Args, "as", ""))
	if err != nil {
		return err
	}
	resp, err := r.client.GetSession(callCtx, state.sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	session := sessionOf(resp)

	keys := make([]string, 0, len(step.Args))
	for key := range step.Args {
		if key != "as" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		want := step.Args[key]
		got, err := r.observed(state, session, key, &want)
		if err != nil {
			return err
		}
		if !valuesEqual(want, got) {
			if err := r.assertf("expected %s = %v, got %v", key, want, got); err != nil {
				return err
			}
		}
	}
	return nil
}

// observed reads the session field an expectation key refers to. Holder
// keys take an alias, which is rewritten to its participant ID in want.
func (r *Runner) observed(state *scenarioState, session map[string]any, key string, want *any) (any, error) {
	switch key {
	case "phase", "location", "title", "cycle", "cycle_length", "ten_flag", "focused",
		"turn_drawn", "ready_count", "face_draws", "revision":
		return session[key], nil
	case "turn_holder", "focus_holder", "last_turn_holder":
		alias := stringOf(*want)
		if alias != "" {
			p, ok := state.players[alias]
			if !ok {
				return nil, r.failf("unknown player alias %q", alias)
			}
			*want = p.participantID
		}
		return session[key+"_id"], nil
	case "viewer":
		alias := stringOf(*want)
		if alias != "" {
			p, ok := state.players[alias]
			if !ok {
				return nil, r.failf("unknown player alias %q", alias)
			}
			*want = p.participantID
		}
		return session["viewer_id"], nil
	case "participants":
		list, _ := session["participants"].([]any)
		return len(list), nil
	case "topic":
		list, _ := session["topics"].([]any)
		if len(list) == 0 {
			return "", nil
		}
		return list[0], nil
	default:
		return nil, r.failf("unknown expectation %q", key)
	}
}

func (r *Runner) runTurnsStep(ctx context.Context, state *scenarioState, step Step) error {
	if err := r.requireSession(state); err != nil {
		return err
	}
	callCtx, err := r.aliasContext(ctx, state, optionalString(step.Args, "as", ""))
	if err != nil {
		return err
	}
	resp, err := r.client.ListTurns(callCtx, state.sessionID, optionalString(step.Args, "filter", ""), optionalInt(step.Args, "page_size", 0))
	if err != nil {
		return fmt.Errorf("list turns: %w", err)
	}
	turns, _ := resp["turns"].([]any)
	if want, ok := step.Args["count"]; ok && !valuesEqual(want, len(turns)) {
		return r.assertf("expected %v turns, got %d", want, len(turns))
	}
	r.logf("turns listed: %d", len(turns))
	return nil
}

// actionCall resolves the caller and payload of an action-like step.
func (r *Runner) actionCall(ctx context.Context, state *scenarioState, step Step) (context.Context, string, map[string]any, error) {
	if err := r.requireSession(state); err != nil {
		return nil, "", nil, err
	}
	action := strings.TrimSpace(optionalString(step.Args, "action", ""))
	if action == "" {
		return nil, "", nil, r.failf("action name is required")
	}
	callCtx, err := r.aliasContext(ctx, state, optionalString(step.Args, "as", ""))
	if err != nil {
		return nil, "", nil, err
	}
	payload := map[string]any{}
	for key, value := range step.Args {
		if key == "as" || key == "action" {
			continue
		}
		payload[key] = value
	}
	return callCtx, action, payload, nil
}

// aliasContext returns ctx carrying the credentials of alias. An empty
// alias calls anonymously.
func (r *Runner) aliasContext(ctx context.Context, state *scenarioState, alias string) (context.Context, error) {
	if alias == "" {
		return ctx, nil
	}
	p, ok := state.players[alias]
	if !ok {
		return nil, r.failf("unknown player alias %q", alias)
	}
	return playerContext(ctx, p), nil
}

func (r *Runner) requireSession(state *scenarioState) error {
	if state.sessionID == "" {
		return r.failf("session is required; call create first")
	}
	return nil
}

func playerContext(ctx context.Context, p *player) context.Context {
	if p.userID != "" {
		return metadata.AppendToOutgoingContext(ctx, grpcmeta.UserIDHeader, p.userID)
	}
	if p.token != "" {
		return metadata.AppendToOutgoingContext(ctx, grpcmeta.PlayerTokenHeader, p.token)
	}
	return ctx
}

func sessionOf(resp map[string]any) map[string]any {
	session, _ := resp["session"].(map[string]any)
	if session == nil {
		return map[string]any{}
	}
	return session
}

// valuesEqual compares Lua and wire values, which disagree on numeric
// types, by their printed form.
func valuesEqual(want, got any) bool {
	return fmt.Sprint(want) == fmt.Sprint(got)
}

func stringOf(value any) string {
	s, _ := value.(string)
	return s
}

func optionalString(args map[string]any, key, fallback string) string {
	if value, ok := args[key].(string); ok {
		return value
	}
	return fallback
}

func optionalBool(args map[string]any, key string, fallback bool) bool {
	if value, ok := args[key].(bool); ok {
		return value
	}
	return fallback
}

func optionalInt(args map[string]any, key string, fallback int) int {
	switch value := args[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	}
	return fallback
}
