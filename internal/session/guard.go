package session

import (
	"errors"
)

const (
	DefaultLoginPath = "/signin"
	DefaultHomePath  = "/"
	AdminLoginPath   = "/admin/login"
)

// State is where a guard is in its check
type State int

const (
	StateChecking State = iota
	StateAuthorized
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthorized:
		return "authorized"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one guard check
type Decision struct {
	State    State
	Redirect string
	Session  *Session
	// Reason is why the guard redirected; nil when authorized
	Reason error
	// Normalized is true when legacy keys were copied into the primary pair
	Normalized bool
	// NormalizeErr is a failed best-effort copy. It never changes the outcome.
	NormalizeErr error
}

// Authorized reports whether children may render
func (d Decision) Authorized() bool {
	return d.State == StateAuthorized
}

var ErrRoleMismatch = errors.New("role not permitted")

// Guard gates a view behind the locally stored session. It never talks to
// the API; an expired token is only discovered when a later API call fails.
type Guard struct {
	// RequiredRole, when set, must equal the user's role
	RequiredRole Role
	// LoginPath receives visitors without a usable session
	LoginPath string
	// HomePath receives signed-in visitors lacking RequiredRole
	HomePath string
}

// AdminGuard is the guard for the back-office
func AdminGuard() *Guard {
	return &Guard{RequiredRole: RoleAdmin, LoginPath: AdminLoginPath}
}

func (g *Guard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

func (g *Guard) homePath() string {
	if g.HomePath == "" {
		return DefaultHomePath
	}
	return g.HomePath
}

// Name identifies the guard in logs and metrics
func (g *Guard) Name() string {
	if g.RequiredRole == "" {
		return "signed_in"
	}
	return string(g.RequiredRole.Normalize())
}

// Check reads st once and decides. Malformed data degrades to a redirect;
// Check never panics on stored values.
func (g *Guard) Check(st Storage) Decision {
	s, err := GetSession(st)
	if err != nil {
		return Decision{State: StateRedirecting, Redirect: g.loginPath(), Reason: err}
	}

	if g.RequiredRole != "" && !s.User.Role.Is(g.RequiredRole) {
		return Decision{State: StateRedirecting, Redirect: g.homePath(), Reason: ErrRoleMismatch, Session: s}
	}

	changed, nerr := Normalize(st)
	return Decision{
		State:        StateAuthorized,
		Session:      s,
		Normalized:   changed,
		NormalizeErr: nerr,
	}
}

// Mount tracks a single guarded view from mount to its terminal state
type Mount struct {
	guard    *Guard
	state    State
	decision Decision
	rendered bool
}

// NewMount starts in StateChecking
func (g *Guard) NewMount() *Mount {
	return &Mount{guard: g, state: StateChecking}
}

// State returns the current state
func (m *Mount) State() State {
	return m.state
}

// Decision returns the result of Run; zero until Run has been called
func (m *Mount) Decision() Decision {
	return m.decision
}

// Run performs the check once. Later calls return the first decision.
func (m *Mount) Run(st Storage) Decision {
	if m.state != StateChecking {
		return m.decision
	}
	m.decision = m.guard.Check(st)
	m.state = m.decision.State
	return m.decision
}

// Render calls children at most once, and only when authorized.
// It reports whether children ran on this call.
func (m *Mount) Render(children func(*Session)) bool {
	if m.state != StateAuthorized || m.rendered {
		return false
	}
	m.rendered = true
	children(m.decision.Session)
	return true
}
