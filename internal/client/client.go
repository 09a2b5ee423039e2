package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultUsername is the factory login of a controller
	DefaultUsername = "admin"

	// DefaultPassword is the factory password of a controller
	DefaultPassword = "remoterelay"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is the default settings cache validity duration
	DefaultCacheDuration = 30 * time.Second
)

// Client talks to the HTTP API of one relay controller
type Client struct {
	// BaseURL is the base URL for the controller (e.g., "http://192.168.4.1:80")
	BaseURL string

	// Username and Password for HTTP Basic Auth
	Username string
	Password string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// CacheDuration is how long to cache settings (0 = no cache)
	CacheDuration time.Duration

	cacheMutex     sync.RWMutex
	cachedSettings *Settings
	cacheTime      time.Time

	// sleep is replaced in tests
	sleep func(time.Duration)
}

// NewClient creates a new client for ip:port
func NewClient(ip string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(ip, strconv.Itoa(port)))
}

// NewClientWithURL creates a new client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		Username:              DefaultUsername,
		Password:              DefaultPassword,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
		sleep:                 time.Sleep,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetAuth sets custom HTTP Basic Auth credentials
func (c *Client) SetAuth(username, password string) {
	c.Username = username
	c.Password = password
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping checks that the controller answers. GET / always replies 418.
func (c *Client) Ping() error {
	status, body, err := c.do(http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	if status != http.StatusTeapot {
		return NewHTTPError(status, string(body))
	}
	return nil
}

// GetSettings returns the controller settings, from cache when fresh.
func (c *Client) GetSettings() (*Settings, error) {
	if cached := c.GetCachedSettings(); cached != nil {
		return cached, nil
	}

	var s Settings
	if err := c.withRetry(func() error {
		return c.getJSON("/settings", &s)
	}); err != nil {
		return nil, err
	}
	c.storeCache(&s)
	return &s, nil
}

// UpdateSettings applies u and returns the settings the controller
// answered with. The update is validated locally first.
func (c *Client) UpdateSettings(u *SettingsUpdate) (*Settings, error) {
	if errs := u.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	form := u.ToFormData()
	if len(form) == 0 {
		return nil, NewValidationError("no settings to update")
	}

	var s Settings
	err := c.withRetry(func() error {
		status, body, err := c.do(http.MethodPost, "/settings", form)
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			return NewHTTPError(status, string(body))
		}
		if err := json.Unmarshal(body, &s); err != nil {
			return NewParseError("failed to parse settings response", err)
		}
		return nil
	})
	c.InvalidateCache()
	if err != nil {
		return nil, err
	}
	c.storeCache(&s)
	return &s, VerifySettings(u, &s)
}

// VerifySettings checks that the settings the controller answered with
// reflect u. Password and wireless fields are never returned and are not
// checked.
func VerifySettings(u *SettingsUpdate, got *Settings) error {
	mismatch := func(name string, want, have any) error {
		return NewValidationError(fmt.Sprintf("%s mismatch: expected %v, got %v", name, want, have))
	}
	switch {
	case u.Debug != nil && *u.Debug != got.Debug:
		return mismatch("debug", *u.Debug, got.Debug)
	case u.Serial != nil && *u.Serial != got.Serial:
		return mismatch("serial", *u.Serial, got.Serial)
	case u.Webservice != nil && *u.Webservice != got.Webservice:
		return mismatch("webservice", *u.Webservice, got.Webservice)
	case u.Portal != nil && *u.Portal != got.Portal:
		return mismatch("wifimanager_portal", *u.Portal, got.Portal)
	case u.Login != nil && *u.Login != got.Login:
		return mismatch("login", *u.Login, got.Login)
	}
	return nil
}

// Reset restores factory settings; the controller restarts afterwards.
func (c *Client) Reset() error { return c.lifecycle("/reset") }

// Erase wipes the settings region; the controller restarts afterwards.
func (c *Client) Erase() error { return c.lifecycle("/erase") }

// Shutdown halts the controller after its grace period.
func (c *Client) Shutdown() error { return c.lifecycle("/shutdown") }

// Restart restarts the controller after its grace period.
func (c *Client) Restart() error { return c.lifecycle("/restart") }

// lifecycle posts to path once. These requests are not idempotent in
// effect on a device that is already stopping, so they are never retried.
func (c *Client) lifecycle(path string) error {
	status, body, err := c.do(http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	c.InvalidateCache()
	if status != http.StatusOK {
		return NewHTTPError(status, string(body))
	}
	return nil
}

// GetState returns the orchestrator snapshot.
func (c *Client) GetState() (*State, error) {
	var s State
	if err := c.withRetry(func() error {
		return c.getJSON("/state", &s)
	}); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetLog returns the controller's recent log lines.
func (c *Client) GetLog() (string, error) {
	var text string
	err := c.withRetry(func() error {
		status, body, err := c.do(http.MethodGet, "/debug", nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return NewHTTPError(status, string(body))
		}
		text = string(body)
		return nil
	})
	return text, err
}

// GetChannel returns one relay channel.
func (c *Client) GetChannel(channel int) (*ChannelState, error) {
	var s ChannelState
	if err := c.withRetry(func() error {
		return c.getJSON("/channel/"+strconv.Itoa(channel), &s)
	}); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetChannel switches one relay channel.
func (c *Client) SetChannel(channel int, on bool) (*ChannelState, error) {
	mode := "off"
	if on {
		mode = "on"
	}

	var s ChannelState
	err := c.withRetry(func() error {
		status, body, err := c.do(http.MethodPut, "/channel/"+strconv.Itoa(channel), url.Values{"mode": {mode}})
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return NewHTTPError(status, string(body))
		}
		if err := json.Unmarshal(body, &s); err != nil {
			return NewParseError("failed to parse channel response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Watch streams state snapshots from /events until ctx is done or the
// connection drops. The returned channel is closed on exit; the error
// channel receives at most one error.
func (c *Client) Watch(ctx context.Context) (<-chan State, <-chan error, error) {
	wsURL, err := url.Parse(c.BaseURL + "/events")
	if err != nil {
		return nil, nil, NewValidationError(fmt.Sprintf("invalid base URL %q", c.BaseURL))
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}

	header := http.Header{}
	if c.Username != "" || c.Password != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		header.Set("Authorization", "Basic "+creds)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.HTTPClient.Timeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized {
				return nil, nil, NewAuthError("authentication failed (check credentials)")
			}
			return nil, nil, NewHTTPError(resp.StatusCode, "")
		}
		return nil, nil, ClassifyNetworkError("event stream dial failed", err)
	}

	states := make(chan State)
	errs := make(chan error, 1)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(states)
		defer conn.Close()
		for {
			var s State
			if err := conn.ReadJSON(&s); err != nil {
				if ctx.Err() == nil {
					errs <- ClassifyNetworkError("event stream closed", err)
				}
				return
			}
			select {
			case states <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return states, errs, nil
}

// InvalidateCache clears the cached settings
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cachedSettings = nil
	c.cacheTime = time.Time{}
}

// GetCachedSettings returns the cached settings without making a network
// request. Returns nil if no valid cache exists.
func (c *Client) GetCachedSettings() *Settings {
	if c.CacheDuration <= 0 {
		return nil
	}
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	if c.cachedSettings != nil && time.Since(c.cacheTime) < c.CacheDuration {
		cached := *c.cachedSettings
		return &cached
	}
	return nil
}

func (c *Client) storeCache(s *Settings) {
	if c.CacheDuration <= 0 {
		return
	}
	cached := *s
	c.cacheMutex.Lock()
	c.cachedSettings = &cached
	c.cacheTime = time.Now()
	c.cacheMutex.Unlock()
}

// withRetry runs fn until it succeeds, fails with a non-retryable error or
// runs out of attempts.
func (c *Client) withRetry(fn func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(currentDelay)

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

// do performs one request and returns status and body. 401 becomes an
// auth error; other statuses are left to the caller.
func (c *Client) do(method, path string, form url.Values) (int, []byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return 0, nil, NewValidationError(fmt.Sprintf("failed to create %s request: %v", method, err))
	}
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, ClassifyNetworkError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil, NewAuthError("authentication failed (check credentials)")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, ClassifyNetworkError("failed to read response body", err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) getJSON(path string, v any) error {
	status, body, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return NewHTTPError(status, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return NewParseError("failed to parse "+path+" response", err)
	}
	return nil
}
