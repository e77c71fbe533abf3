package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"mace/internal/logger"
)

type State int

const (
	StateChecking State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a point-in-time view of the provider.
type Snapshot struct {
	State    State
	Identity *Identity
}

func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

// Navigation targets used by the provider.
const (
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
)

const minPasswordLength = 8

// Authenticator is the backend surface the provider needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*Grant, error)
	Register(ctx context.Context, req RegisterRequest) (*Grant, error)
	WhoAmI(ctx context.Context) (*Identity, error)
}

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(path string)
}

// Provider owns the in-memory session and its lifecycle: Checking on
// start, then Authenticated or Anonymous.
type Provider struct {
	store Store
	auth  Authenticator
	nav   Navigator
	log   *slog.Logger
	now   func() time.Time

	initOnce sync.Once

	mu         sync.Mutex
	state      State
	identity   *Identity
	creds      Credentials
	generation uint64
	changed    chan struct{}
	observers  map[int]func(Snapshot)
	nextObs    int
}

type Option func(*Provider)

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(store Store, auth Authenticator, nav Navigator, opts ...Option) *Provider {
	p := &Provider{
		store:     store,
		auth:      auth,
		nav:       nav,
		log:       logger.Discard(),
		now:       time.Now,
		state:     StateChecking,
		changed:   make(chan struct{}),
		observers: make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Init performs the start-up "am I signed in" check. Only the first call
// does any work.
func (p *Provider) Init(ctx context.Context) Snapshot {
	p.initOnce.Do(func() { p.check(ctx) })
	return p.Snapshot()
}

func (p *Provider) check(ctx context.Context) {
	creds, err := p.store.Load(ctx)
	if err != nil {
		p.log.WarnContext(ctx, "session store unavailable, continuing signed out", "error", err)
		p.resolveAnonymous(ctx)
		return
	}
	if creds.Empty() {
		p.resolveAnonymous(ctx)
		return
	}
	if tokenExpired(creds.Token, p.now()) {
		p.log.InfoContext(ctx, "persisted token expired", logger.SecretAttr("token", creds.Token))
		p.resolveAnonymous(ctx)
		return
	}

	p.mu.Lock()
	p.creds = creds
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	identity, err := p.auth.WhoAmI(ctx)

	p.mu.Lock()
	if p.state != StateChecking || p.generation != gen {
		// Expire or a sign-in already resolved the check.
		p.mu.Unlock()
		return
	}
	if err == nil && identity == nil {
		err = errors.New("identity lookup returned no user")
	}
	if err != nil {
		p.log.WarnContext(ctx, "identity lookup failed, clearing session", "error", err)
		p.creds = Credentials{}
		p.identity = nil
		p.clearStoreLocked(ctx)
		notify := p.transitionLocked(StateAnonymous)
		p.mu.Unlock()
		notify()
		return
	}
	p.identity = identity
	notify := p.transitionLocked(StateAuthenticated)
	p.mu.Unlock()
	notify()
	p.log.InfoContext(ctx, "session restored", "user_id", identity.ID, "role", identity.Role)
}

func (p *Provider) resolveAnonymous(ctx context.Context) {
	p.mu.Lock()
	if p.state != StateChecking {
		p.mu.Unlock()
		return
	}
	p.creds = Credentials{}
	p.identity = nil
	p.clearStoreLocked(ctx)
	notify := p.transitionLocked(StateAnonymous)
	p.mu.Unlock()
	notify()
}

// Login signs in and persists the returned credentials. A rejected sign-in
// returns *AuthError and leaves the state untouched.
func (p *Provider) Login(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, NewAuthError("Password is required")
	}

	grant, err := p.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if grant == nil || grant.Identity == nil || grant.Credentials.Empty() {
		return nil, NewAuthError("Login failed")
	}

	p.establish(ctx, grant)
	p.nav.Navigate(PathDashboard)
	return grant.Identity, nil
}

// Register creates an account. When the backend also issues credentials
// the user is signed in; otherwise they are sent to the login screen.
func (p *Provider) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		return RegisterResult{}, NewAuthError("Name is required")
	}
	if err := validateEmail(req.Email); err != nil {
		return RegisterResult{}, err
	}
	if len([]rune(req.Password)) < minPasswordLength {
		return RegisterResult{}, NewAuthError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	grant, err := p.auth.Register(ctx, req)
	if err != nil {
		return RegisterResult{}, err
	}
	if grant == nil {
		return RegisterResult{}, NewAuthError("Registration failed")
	}

	if grant.Identity != nil && !grant.Credentials.Empty() {
		p.establish(ctx, grant)
		p.nav.Navigate(PathDashboard)
		return RegisterResult{Identity: grant.Identity, Authenticated: true, Message: grant.Message}, nil
	}

	p.nav.Navigate(PathLogin)
	return RegisterResult{Message: grant.Message}, nil
}

func (p *Provider) establish(ctx context.Context, grant *Grant) {
	p.mu.Lock()
	if err := p.store.Save(ctx, grant.Credentials); err != nil {
		p.log.WarnContext(ctx, "failed to persist session", "error", err)
	}
	p.creds = grant.Credentials
	p.identity = grant.Identity
	p.generation++
	notify := p.transitionLocked(StateAuthenticated)
	p.mu.Unlock()
	notify()

	p.log.InfoContext(ctx, "signed in",
		"user_id", grant.Identity.ID,
		"role", grant.Identity.Role,
		logger.SecretAttr("token", grant.Credentials.Token),
	)
}

// Logout destroys the session and returns to the login screen.
func (p *Provider) Logout(ctx context.Context) {
	p.mu.Lock()
	p.creds = Credentials{}
	p.identity = nil
	p.generation++
	p.clearStoreLocked(ctx)
	notify := func() {}
	if p.state != StateAnonymous {
		notify = p.transitionLocked(StateAnonymous)
	}
	p.mu.Unlock()
	notify()

	p.log.InfoContext(ctx, "signed out")
	p.nav.Navigate(PathLogin)
}

// Credentials returns the bearer token to attach and the generation it
// belongs to.
func (p *Provider) Credentials() (string, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creds.Token, p.generation, !p.creds.Empty()
}

// RefreshToken returns the persisted refresh slot. Nothing refreshes with it.
func (p *Provider) RefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creds.RefreshToken
}

// Expire is the session-invalidation path for a rejected credential of
// the given generation. Repeated or stale calls are no-ops, so concurrent
// 401s navigate once.
func (p *Provider) Expire(generation uint64) {
	ctx := context.Background()

	p.mu.Lock()
	if generation != p.generation || p.creds.Empty() {
		p.mu.Unlock()
		return
	}
	wasAuthenticated := p.state == StateAuthenticated
	p.creds = Credentials{}
	p.identity = nil
	p.clearStoreLocked(ctx)
	notify := p.transitionLocked(StateAnonymous)
	p.mu.Unlock()
	notify()

	p.log.Warn("session expired", "generation", generation)
	if wasAuthenticated {
		p.nav.Navigate(PathLogin)
	}
}

func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Changed returns a channel closed on the next state transition.
func (p *Provider) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

// Await blocks until the provider has left Checking.
func (p *Provider) Await(ctx context.Context) (Snapshot, error) {
	for {
		p.mu.Lock()
		snap := p.snapshotLocked()
		ch := p.changed
		p.mu.Unlock()

		if snap.State != StateChecking {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Subscribe registers fn for every transition. The returned func removes it.
func (p *Provider) Subscribe(fn func(Snapshot)) func() {
	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) snapshotLocked() Snapshot {
	snap := Snapshot{State: p.state}
	if p.identity != nil {
		id := *p.identity
		snap.Identity = &id
	}
	return snap
}

// transitionLocked switches state and returns the observer notification,
// which must run after the lock is released.
func (p *Provider) transitionLocked(next State) func() {
	p.state = next
	close(p.changed)
	p.changed = make(chan struct{})

	snap := p.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(p.observers))
	for _, fn := range p.observers {
		observers = append(observers, fn)
	}
	return func() {
		for _, fn := range observers {
			fn(snap)
		}
	}
}

func (p *Provider) clearStoreLocked(ctx context.Context) {
	if err := p.store.Clear(ctx); err != nil {
		p.log.WarnContext(ctx, "failed to clear session store", "error", err)
	}
}

func validateEmail(email string) error {
	if email == "" {
		return NewAuthError("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return NewAuthError("Email address is invalid")
	}
	return nil
}
