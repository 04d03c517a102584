package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dashboard-realtime/internal/bus"
)

// Status is the guard's per-mount state machine.
type Status int

const (
	// StatusIdle: no credential present, nothing to check. Also the state
	// before Verify has run.
	StatusIdle Status = iota
	// StatusChecking: the single validation request is in flight.
	StatusChecking
	// StatusConfirmed: the server accepted the credential.
	StatusConfirmed
	// StatusRevoked: the credential was rejected and local state cleared.
	StatusRevoked
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusChecking:
		return "checking"
	case StatusConfirmed:
		return "confirmed"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

const (
	// HomeView and HomeRoute are where a revoked user lands.
	HomeView  = "home"
	HomeRoute = "/"

	defaultHTTPTimeout = 10 * time.Second
)

// UI is the surface the guard drives on revoke. The real shell is external;
// tests and the CLI plug in their own.
type UI interface {
	SetActiveView(name string)
	Navigate(route string)
	Notify(message string)
}

// GuardConfig tunes the validation policy.
type GuardConfig struct {
	// APIBaseURL is the origin of the validation endpoint.
	APIBaseURL string

	// FailOpen keeps the session when the validation endpoint is
	// unreachable. Default is fail-closed: a credential that cannot be
	// verified is treated as invalid. Explicit rejections always revoke.
	FailOpen bool

	// VerifyRetries is how many extra attempts a network error gets in
	// fail-open mode. Ignored when fail-closed.
	VerifyRetries int

	// HTTPTimeout bounds the validation request.
	HTTPTimeout time.Duration
}

// Guard validates the persisted credential once per mount and owns the
// revoke path: it is the only writer that clears the session.
type Guard struct {
	cfg   GuardConfig
	store Store
	state *State
	bus   *bus.Bus
	ui    UI
	http  *http.Client
	log   *slog.Logger

	mu       sync.Mutex
	status   Status
	verified bool
}

func NewGuard(cfg GuardConfig, store Store, state *State, b *bus.Bus, ui UI, log *slog.Logger) *Guard {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		cfg:   cfg,
		store: store,
		state: state,
		bus:   b,
		ui:    ui,
		http:  &http.Client{Timeout: cfg.HTTPTimeout},
		log:   log,
	}
}

func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Verify runs the once-per-mount credential check. With no credential it
// stays Idle and sends nothing. Otherwise it issues one validation request:
// acceptance confirms the session untouched, rejection revokes it. Network
// errors follow the configured policy (fail-closed by default). Calling
// Verify again returns the settled status without another request.
func (g *Guard) Verify(ctx context.Context) (Status, error) {
	g.mu.Lock()
	if g.verified {
		status := g.status
		g.mu.Unlock()
		return status, nil
	}
	g.verified = true

	token, err := g.store.Token(ctx)
	if err != nil {
		g.mu.Unlock()
		return StatusIdle, fmt.Errorf("read credential: %w", err)
	}
	if token == "" {
		g.status = StatusIdle
		g.mu.Unlock()
		return StatusIdle, nil
	}
	g.status = StatusChecking
	g.mu.Unlock()

	accepted, netErr := g.check(ctx, token)
	if netErr != nil && g.cfg.FailOpen {
		for attempt := 0; attempt < g.cfg.VerifyRetries && netErr != nil; attempt++ {
			accepted, netErr = g.check(ctx, token)
		}
		if netErr != nil {
			// Unreachable endpoint, fail-open: keep the session and
			// trust the credential until the server says otherwise.
			g.log.Warn("credential check unreachable; keeping session", "error", netErr)
			return g.settle(StatusConfirmed), nil
		}
	}
	if netErr != nil {
		// Fail-closed: an unverifiable credential is an untrusted one.
		g.log.Warn("credential check failed; revoking session", "error", netErr)
		g.Revoke(ctx, "verification unreachable")
		return StatusRevoked, nil
	}

	if accepted {
		return g.settle(StatusConfirmed), nil
	}
	g.Revoke(ctx, "credential rejected")
	return StatusRevoked, nil
}

// check performs one validation request. The returned error is a transport
// problem; an explicit rejection comes back as (false, nil).
func (g *Guard) check(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.APIBaseURL+"/api/check-token", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}

	var body struct {
		Expired bool `json:"expired"`
	}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		_ = json.Unmarshal(data, &body)
	}
	g.log.Info("credential rejected", "status", resp.StatusCode, "expired", body.Expired)
	return false, nil
}

// Revoke atomically clears the persisted session, resets the in-memory auth
// state, returns the UI to the home view, and announces the change. Store
// and memory never disagree afterwards: even when the store clear fails the
// in-memory state is reset and the failure logged.
func (g *Guard) Revoke(ctx context.Context, reason string) {
	g.mu.Lock()
	g.status = StatusRevoked
	g.verified = true
	if err := g.store.Clear(ctx); err != nil {
		g.log.Error("session clear failed", "reason", reason, "error", err)
	}
	g.state.Reset()
	g.mu.Unlock()

	if g.ui != nil {
		g.ui.SetActiveView(HomeView)
		g.ui.Navigate(HomeRoute)
		g.ui.Notify("Your session has ended. Please sign in again.")
	}
	if g.bus != nil {
		g.bus.Publish(bus.Event{Topic: bus.TopicSessionChanged, Reason: reason})
	}
	g.log.Info("session revoked", "reason", reason)
}

func (g *Guard) settle(status Status) Status {
	g.mu.Lock()
	g.status = status
	g.mu.Unlock()
	return status
}
