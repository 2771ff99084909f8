// Package session implements the client half of the token lifecycle: a
// state machine holding the current user and access token, refreshing the
// pair silently before expiry and falling back to re-authentication when
// the refresh path fails.
package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"legalgpt/server/internal/model"
)

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

// TokenCache persists the access token across controller restarts, the way
// a browser mirrors it to localStorage for cross-tab continuity.
type TokenCache interface {
	Load() string
	Store(token string)
	Clear()
}

type MemoryCache struct {
	mu    sync.Mutex
	token string
}

func (c *MemoryCache) Load() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *MemoryCache) Store(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

type Options struct {
	// RefreshEvery is the silent-refresh interval. The default of 12
	// minutes leaves a 3 minute margin before the 15 minute access token
	// expiry.
	RefreshEvery time.Duration

	// OnSignedOut fires when the session ends for any reason other than a
	// plain Start failure: logout, or a terminal refresh failure.
	OnSignedOut func()
}

type Controller struct {
	client *Client
	cache  TokenCache
	opts   Options

	group singleflight.Group

	mu          sync.Mutex
	state       State
	user        *model.User
	accessToken string

	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(client *Client, cache TokenCache, opts Options) *Controller {
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = 12 * time.Minute
	}
	if cache == nil {
		cache = &MemoryCache{}
	}
	return &Controller{
		client: client,
		cache:  cache,
		opts:   opts,
		state:  StateUnauthenticated,
	}
}

// Start restores a session if one survives: a cached access token is tried
// against Me with a single refresh-and-retry on 401; with no cached token a
// direct Refresh covers the cookie-only case. The background refresh loop
// runs until ctx is cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	c.setState(StateAuthenticating)

	if cached := c.cache.Load(); cached != "" {
		if user, err := c.client.Me(ctx, cached); err == nil {
			c.signIn(user, cached)
		} else if IsUnauthorized(err) {
			c.restoreViaRefresh(ctx)
		} else {
			c.resetLocal()
		}
	} else {
		c.restoreViaRefresh(ctx)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()
	go c.refreshLoop(loopCtx, done)
}

func (c *Controller) restoreViaRefresh(ctx context.Context) {
	tok, err := c.RefreshNow(ctx)
	if err != nil {
		c.resetLocal()
		return
	}
	user, err := c.client.Me(ctx, tok)
	if err != nil {
		c.resetLocal()
		return
	}
	c.signIn(user, tok)
}

// Stop tears down the refresh loop without touching session state.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Controller) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.opts.RefreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.State() != StateAuthenticated {
				continue
			}
			// A failed silent refresh is terminal: an expired refresh
			// token is not recoverable.
			if _, err := c.RefreshNow(ctx); err != nil {
				c.signOut()
				return
			}
		}
	}
}

// RefreshNow forces a token refresh. Concurrent callers share one in-flight
// call rather than issuing duplicates; last-write-wins on the stored token
// is fine since every result is independently valid.
func (c *Controller) RefreshNow(ctx context.Context) (string, error) {
	result, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		tok, err := c.client.Refresh(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.accessToken = tok
		c.mu.Unlock()
		c.cache.Store(tok)
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Login authenticates and transitions to authenticated, or propagates the
// server's failure message.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.setState(StateAuthenticating)
	user, tok, err := c.client.Login(ctx, email, password)
	if err != nil {
		c.setState(StateUnauthenticated)
		return err
	}
	c.signIn(user, tok)
	return nil
}

func (c *Controller) Register(ctx context.Context, email, password, name string) error {
	c.setState(StateAuthenticating)
	user, tok, err := c.client.Register(ctx, email, password, name)
	if err != nil {
		c.setState(StateUnauthenticated)
		return err
	}
	c.signIn(user, tok)
	return nil
}

// Logout tells the server to drop the refresh cookie (best effort) and
// always clears local state.
func (c *Controller) Logout(ctx context.Context) {
	_ = c.client.Logout(ctx)
	c.signOut()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) User() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Controller) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Controller) signIn(user *model.User, token string) {
	c.mu.Lock()
	c.state = StateAuthenticated
	c.user = user
	c.accessToken = token
	c.mu.Unlock()
	c.cache.Store(token)
}

// resetLocal clears state without firing OnSignedOut; used during Start
// when no session can be restored.
func (c *Controller) resetLocal() {
	c.mu.Lock()
	c.state = StateUnauthenticated
	c.user = nil
	c.accessToken = ""
	c.mu.Unlock()
	c.cache.Clear()
}

func (c *Controller) signOut() {
	c.resetLocal()
	if c.opts.OnSignedOut != nil {
		c.opts.OnSignedOut()
	}
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
