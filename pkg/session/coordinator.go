// Package session keeps an authenticated client session against the
// storefront API. A Coordinator attaches the access token to every call and
// recovers from expiry with a single refresh shared by all failing calls.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 15 * time.Second

	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	refreshPath  = "/auth/refresh-token"
	logoutPath   = "/auth/logout"
)

var (
	// ErrSessionExpired is returned when the refresh cycle fails. The session
	// is cleared and the user must log in again.
	ErrSessionExpired = errors.New("session expired")
	// ErrUnauthorized is returned for a call rejected again after its retry.
	ErrUnauthorized = errors.New("unauthorized")
)

type Identity struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type Session struct {
	AccessToken string
	User        *Identity
}

// APIError is a non-2xx response the coordinator did not recover from.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type Option func(*Coordinator)

// WithTimeout bounds every outbound call, including the refresh.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.client.Timeout = d
	}
}

// WithTransport replaces the base transport. It is still wrapped for tracing.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Coordinator) {
		c.transport = rt
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// OnSessionCleared registers fn to run after the session is dropped by a
// failed refresh or a logout.
func OnSessionCleared(fn func()) Option {
	return func(c *Coordinator) {
		c.onCleared = fn
	}
}

type Coordinator struct {
	baseURL   string
	client    *http.Client
	transport http.RoundTripper
	observer  Observer
	onCleared func()

	mu      sync.Mutex
	session Session
	// generation counts installed tokens so a 401 for a superseded token can
	// be retried without another refresh.
	generation uint64
	refreshing bool
	waiters    []*waiter
}

type call struct {
	ctx      context.Context
	method   string
	endpoint string
	body     []byte
	out      any
}

type waiter struct {
	call   *call
	result chan error
}

func New(baseURL string, opts ...Option) (*Coordinator, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Coordinator{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: defaultTimeout, Jar: jar},
		transport: http.DefaultTransport,
		observer:  nopObserver{},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.client.Transport = otelhttp.NewTransport(c.transport)

	return c, nil
}

// Session returns a copy of the current session.
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s.User != nil {
		user := *s.User
		s.User = &user
	}

	return s
}

func (c *Coordinator) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session.AccessToken != ""
}

// Login exchanges credentials for a session. The refresh credential arrives
// as an http-only cookie and stays in the coordinator's jar.
func (c *Coordinator) Login(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, loginPath, map[string]string{"email": email, "password": password})
}

func (c *Coordinator) Register(ctx context.Context, name, email, password string) (Session, error) {
	return c.authenticate(ctx, registerPath, map[string]string{"name": name, "email": email, "password": password})
}

// Logout revokes the refresh credential and clears the session. The session
// is cleared even when the server call fails.
func (c *Coordinator) Logout(ctx context.Context) error {
	token, _ := c.current()

	body, err := encode(struct{}{})
	if err != nil {
		return err
	}

	sendErr := c.send(&call{ctx: ctx, method: http.MethodPost, endpoint: logoutPath, body: body}, token)

	c.clear()

	return sendErr
}

// Do sends an authenticated request and decodes the response data into out,
// which may be nil. A 401 triggers at most one refresh no matter how many
// calls fail concurrently; each call is retried at most once.
func (c *Coordinator) Do(ctx context.Context, method, endpoint string, payload, out any) error {
	body, err := encode(payload)
	if err != nil {
		return err
	}

	cl := &call{ctx: ctx, method: method, endpoint: endpoint, body: body, out: out}
	token, sentWith := c.current()

	err = c.send(cl, token)
	if !isUnauthorized(err) {
		return err
	}

	return c.recoverCall(cl, sentWith)
}

func (c *Coordinator) recoverCall(cl *call, sentWith uint64) error {
	c.mu.Lock()

	if sentWith != c.generation {
		token := c.session.AccessToken
		c.mu.Unlock()

		// The session was dropped while this call was in flight.
		if token == "" {
			return fmt.Errorf("%w: session cleared during %s %s", ErrSessionExpired, cl.method, cl.endpoint)
		}

		return c.retry(cl, token)
	}

	if c.refreshing {
		// Parked calls resolve with the refresh; they cannot be cancelled on their own.
		w := &waiter{call: cl, result: make(chan error, 1)}
		c.waiters = append(c.waiters, w)
		c.mu.Unlock()

		return <-w.result
	}

	c.refreshing = true
	c.mu.Unlock()

	token, refreshErr := c.refresh(cl.ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.generation++

	if refreshErr != nil {
		c.session = Session{}
	} else {
		c.session.AccessToken = token
	}
	c.mu.Unlock()

	if refreshErr != nil {
		for _, w := range waiters {
			w.result <- refreshErr
		}

		if c.onCleared != nil {
			c.onCleared()
		}

		return refreshErr
	}

	err := c.retry(cl, token)

	go func() {
		for _, w := range waiters {
			w.result <- c.retry(w.call, token)
		}
	}()

	return err
}

func (c *Coordinator) retry(cl *call, token string) error {
	err := c.send(cl, token)
	if isUnauthorized(err) {
		return fmt.Errorf("%w: %s %s", ErrUnauthorized, cl.method, cl.endpoint)
	}

	return err
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	start := time.Now()

	var resp authResponse

	// The refresh outlives the triggering call's cancellation; parked calls depend on it.
	err := c.send(&call{ctx: context.WithoutCancel(ctx), method: http.MethodPost, endpoint: refreshPath, out: &resp}, "")
	if err == nil && resp.AccessToken == "" {
		err = errors.New("refresh response carried no access token")
	}

	c.observer.ObserveRefresh(time.Since(start), err)

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	return resp.AccessToken, nil
}

type authResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int       `json:"expires_in"`
	User        *Identity `json:"user"`
	Message     string    `json:"message"`
}

func (c *Coordinator) authenticate(ctx context.Context, path string, payload any) (Session, error) {
	body, err := encode(payload)
	if err != nil {
		return Session{}, err
	}

	var resp authResponse
	if err := c.send(&call{ctx: ctx, method: http.MethodPost, endpoint: path, body: body, out: &resp}, ""); err != nil {
		return Session{}, err
	}

	if resp.AccessToken == "" {
		return Session{}, &APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: resp.Message}
	}

	c.mu.Lock()
	c.session = Session{AccessToken: resp.AccessToken, User: resp.User}
	c.generation++
	c.mu.Unlock()

	return c.Session(), nil
}

func (c *Coordinator) current() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session.AccessToken, c.generation
}

func (c *Coordinator) clear() {
	c.mu.Lock()
	c.session = Session{}
	c.generation++
	c.mu.Unlock()

	if c.onCleared != nil {
		c.onCleared()
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func (c *Coordinator) send(cl *call, token string) error {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(cl.ctx, cl.method, c.baseURL+cl.endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}

		return apiErr
	}

	if cl.out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, cl.out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}

func encode(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	return b, nil
}

func isUnauthorized(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
