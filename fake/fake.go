// Package fake provides an in-memory host implementing every tokengate
// collaborator, for tests.
//
// Use fake.New() and Host.Client() in unit tests to get a fully wired
// client (real signing, validation and policy) without a database:
//
//	host := fake.New(fake.WithCustomer(fake.Customer{ID: 1, Username: "alice", Password: "pw", Active: true, Roles: []string{"ApiUserRole"}}))
//	client := host.Client()
package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/keys"
	"github.com/chimerakang/tokengate-go/gate"
	"github.com/chimerakang/tokengate-go/token"
)

// SigningSecret is the fixed secret the fake host signs with.
var SigningSecret = []byte("fake-signing-secret-0123456789abcdef")

// Customer is a host account.
type Customer struct {
	ID         int64
	ExternalID string // defaults to "ext-<ID>"
	Username   string
	Email      string
	Password   string
	Active     bool
	Roles      []string
}

// Activity is a recorded audit entry.
type Activity struct {
	CustomerID  int64
	EventName   string
	Description string
	RequestID   string
}

// Option configures the fake host.
type Option func(*Host)

// Host is an in-memory host. All methods are safe for concurrent use.
type Host struct {
	mu        sync.RWMutex
	customers map[int64]*Customer
	outcomes  map[string]tokengate.LoginOutcome // login → forced outcome
	api       bool
	usernames bool
	now       func() time.Time
	sideErr   error

	sessions   []int64
	activities []Activity
	logins     int
}

// compile-time checks
var (
	_ tokengate.CredentialValidator = (*Host)(nil)
	_ tokengate.IdentityStore       = (*Host)(nil)
	_ tokengate.SettingsProvider    = (*Host)(nil)
	_ tokengate.SessionBridge       = (*Host)(nil)
	_ tokengate.ActivityLogger      = (*Host)(nil)
)

// WithCustomer adds an account.
func WithCustomer(c Customer) Option {
	return func(h *Host) {
		if c.ExternalID == "" {
			c.ExternalID = fmt.Sprintf("ext-%d", c.ID)
		}
		h.customers[c.ID] = &c
	}
}

// WithLoginOutcome forces the outcome ValidateCredentials reports for login,
// regardless of the stored password.
func WithLoginOutcome(login string, o tokengate.LoginOutcome) Option {
	return func(h *Host) { h.outcomes[login] = o }
}

// WithAPIEnabled sets the "API enabled" setting. Default: true.
func WithAPIEnabled(v bool) Option {
	return func(h *Host) { h.api = v }
}

// WithUsernamesEnabled sets the usernames setting. Default: false.
func WithUsernamesEnabled(v bool) Option {
	return func(h *Host) { h.usernames = v }
}

// WithClock sets the clock used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(h *Host) { h.now = now }
}

// WithSideEffectError makes RememberSession and Append fail with err.
func WithSideEffectError(err error) Option {
	return func(h *Host) { h.sideErr = err }
}

// New creates a fake host.
func New(opts ...Option) *Host {
	h := &Host{
		customers: make(map[int64]*Customer),
		outcomes:  make(map[string]tokengate.LoginOutcome),
		api:       true,
		now:       time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Client returns a client wired to this host with real HS256 signing and the
// default policy. extra options are applied last and may override any
// collaborator.
func (h *Host) Client(extra ...tokengate.Option) *tokengate.Client {
	ring, err := keys.NewStatic("fake", SigningSecret)
	if err != nil {
		panic(err)
	}
	cfg := tokengate.Config{UsernamesEnabled: h.usernames}

	opts := []tokengate.Option{
		tokengate.WithTokenIssuer(token.NewIssuer(ring, 0, token.WithClock(h.now))),
		tokengate.WithTokenVerifier(token.NewValidator(ring, token.WithClock(h.now))),
		tokengate.WithCredentialValidator(h),
		tokengate.WithIdentityStore(h),
		tokengate.WithSettings(h),
		tokengate.WithSessionBridge(h),
		tokengate.WithActivityLogger(h),
	}
	c, err := gate.New(cfg, ring, append(opts, extra...)...)
	if err != nil {
		panic(err)
	}
	return c
}

// --- CredentialValidator ---

// ValidateCredentials checks the forced outcome first, then the stored
// password. Account state is not checked here.
func (h *Host) ValidateCredentials(_ context.Context, login, password string) (tokengate.LoginOutcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logins++

	if o, ok := h.outcomes[login]; ok {
		return o, nil
	}
	c := h.findLocked(login, h.usernames)
	if c == nil {
		return tokengate.LoginCustomerNotExist, nil
	}
	if c.Password != password {
		return tokengate.LoginWrongPassword, nil
	}
	return tokengate.LoginSuccessful, nil
}

// LoginAttempts returns how many times ValidateCredentials was called.
func (h *Host) LoginAttempts() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.logins
}

// --- IdentityStore ---

func (h *Host) GetByUsername(_ context.Context, username string) (*tokengate.Identity, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return identityOrNotFound(h.findLocked(username, true))
}

func (h *Host) GetByEmail(_ context.Context, email string) (*tokengate.Identity, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return identityOrNotFound(h.findLocked(email, false))
}

func (h *Host) GetByID(_ context.Context, id int64) (*tokengate.Identity, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return identityOrNotFound(h.customers[id])
}

func (h *Host) findLocked(login string, byUsername bool) *Customer {
	for _, c := range h.customers {
		if byUsername && c.Username != "" && c.Username == login {
			return c
		}
		if !byUsername && c.Email != "" && strings.EqualFold(c.Email, login) {
			return c
		}
	}
	return nil
}

func identityOrNotFound(c *Customer) (*tokengate.Identity, error) {
	if c == nil {
		return nil, tokengate.ErrIdentityNotFound
	}
	return &tokengate.Identity{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Username:   c.Username,
		Email:      c.Email,
		Active:     c.Active,
		Roles:      append([]string(nil), c.Roles...),
	}, nil
}

// DeleteCustomer removes an account. Tokens already issued stay valid.
func (h *Host) DeleteCustomer(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.customers, id)
}

// SetActive changes an account's active flag.
func (h *Host) SetActive(id int64, active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.customers[id]; ok {
		c.Active = active
	}
}

// SetRoles replaces an account's roles.
func (h *Host) SetRoles(id int64, roles ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.customers[id]; ok {
		c.Roles = roles
	}
}

// --- SettingsProvider ---

func (h *Host) APIEnabled(context.Context) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.api, nil
}

func (h *Host) UsernamesEnabled(context.Context) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.usernames, nil
}

// SetAPIEnabled toggles the "API enabled" setting at runtime.
func (h *Host) SetAPIEnabled(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.api = v
}

// --- SessionBridge ---

func (h *Host) RememberSession(_ context.Context, identity *tokengate.Identity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sideErr != nil {
		return h.sideErr
	}
	h.sessions = append(h.sessions, identity.ID)
	return nil
}

// RememberedSessions returns the customer IDs passed to RememberSession.
func (h *Host) RememberedSessions() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]int64(nil), h.sessions...)
}

// --- ActivityLogger ---

func (h *Host) Append(ctx context.Context, identity *tokengate.Identity, eventName, description string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sideErr != nil {
		return h.sideErr
	}
	h.activities = append(h.activities, Activity{
		CustomerID:  identity.ID,
		EventName:   eventName,
		Description: description,
		RequestID:   tokengate.RequestIDFromContext(ctx),
	})
	return nil
}

// Activities returns the recorded audit entries.
func (h *Host) Activities() []Activity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Activity(nil), h.activities...)
}
