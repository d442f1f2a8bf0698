package youtrack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	acceptJSON      = "application/json"
	acceptXML       = "application/xml"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Connection is an authenticated session against a YouTrack server.
//
// A Connection holds mutable authentication state and does no locking of its
// own. Use one Connection per goroutine, or hand out copies with Clone.
type Connection struct {
	uri        *uriBuilder
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger

	cookies       []*http.Cookie
	username      string
	authenticated bool
	lastStatus    int
}

// NewConnection creates a connection to the YouTrack instance at host:port.
// A port of 0 selects 80, or 443 when useSSL is set. path is the optional
// prefix the instance is served under.
func NewConnection(host string, port int, useSSL bool, path string, logger zerolog.Logger, opts ...Option) (*Connection, error) {
	protocol := "http"
	if useSSL {
		protocol = "https"
	}
	if port == 0 {
		port = 80
		if useSSL {
			port = 443
		}
	}

	uri, err := newURIBuilder(protocol, host, port, path)
	if err != nil {
		return nil, err
	}

	options := &connectionOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return &Connection{
		uri:        uri,
		httpClient: options.buildClient(),
		userAgent:  options.userAgent,
		logger:     logger,
	}, nil
}

// IsAuthenticated reports whether Authenticate has succeeded since the last Logout
func (c *Connection) IsAuthenticated() bool {
	return c.authenticated
}

// Username returns the login of the authenticated user, or ""
func (c *Connection) Username() string {
	return c.username
}

// LastStatus returns the HTTP status code of the most recent request
func (c *Connection) LastStatus() int {
	return c.lastStatus
}

// BaseURL returns the URL every resource path is resolved against
func (c *Connection) BaseURL() string {
	return c.uri.base
}

// Clone returns an independent connection that shares the HTTP client and
// carries a copy of the current authentication state.
func (c *Connection) Clone() *Connection {
	clone := *c
	clone.cookies = slices.Clone(c.cookies)
	return &clone
}

// Authenticate logs in with username and password and keeps the session
// cookie for later requests. Any previous session is dropped first, so a
// failed call leaves the connection unauthenticated. Every failure is
// returned as an *AuthenticationError.
func (c *Connection) Authenticate(ctx context.Context, username, password string) error {
	c.clearSession()

	credentials := url.Values{
		"login":    {username},
		"password": {password},
	}

	resp, err := c.send(ctx, http.MethodPost, "user/login", credentials, acceptXML)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return &AuthenticationError{
				Message:    httpErr.Description,
				StatusCode: httpErr.StatusCode,
				Err:        httpErr,
			}
		}
		return &AuthenticationError{Message: err.Error(), Err: err}
	}

	doc, err := resp.Document()
	if err != nil {
		return &AuthenticationError{
			Message:    ErrAuthenticationFailed.Error(),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	if !strings.EqualFold(doc.String("login"), "ok") {
		return &AuthenticationError{
			Message:    ErrAuthenticationFailed.Error(),
			StatusCode: resp.StatusCode,
		}
	}

	c.cookies = resp.Cookies
	c.username = username
	c.authenticated = true

	c.logger.Debug().
		Str("username", username).
		Int("cookies", len(resp.Cookies)).
		Msg("Authenticated with YouTrack")

	return nil
}

// Logout forgets the session. No request is sent.
func (c *Connection) Logout() {
	c.clearSession()
}

func (c *Connection) clearSession() {
	c.authenticated = false
	c.username = ""
	c.cookies = nil
}

// GetResponse performs a GET and returns the raw response. A 403 is reported
// as an *InvalidRequestError with reason ErrInsufficientRights; any other
// non-2xx status is an *HTTPError.
func (c *Connection) GetResponse(ctx context.Context, path string) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "", acceptJSON)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsForbidden() {
			return nil, &InvalidRequestError{Reason: ErrInsufficientRights, Err: httpErr}
		}
		return nil, err
	}
	return resp, nil
}

// Get fetches path and returns the body as a loosely typed Document
func (c *Connection) Get(ctx context.Context, path string) (*Document, error) {
	resp, err := c.GetResponse(ctx, path)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// GetCurrentUser returns the account the connection is authenticated as.
// The login is filled in from the session since the payload omits it.
func (c *Connection) GetCurrentUser(ctx context.Context) (*User, error) {
	user, err := GetAs[User](ctx, c, "user/current")
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &InvalidRequestError{Reason: ErrNotFound}
	}

	user.Username = c.username
	return user, nil
}

// Head performs a HEAD request and returns the status code
func (c *Connection) Head(ctx context.Context, path string) (int, error) {
	resp, err := c.do(ctx, http.MethodHead, path, nil, "", acceptJSON)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.StatusCode, err
		}
		return 0, err
	}
	return resp.StatusCode, nil
}

// Post sends data form-encoded and returns the raw response.
// XML is requested, but the server may answer in JSON anyway.
func (c *Connection) Post(ctx context.Context, path string, data url.Values) (*Response, error) {
	return c.send(ctx, http.MethodPost, path, data, acceptXML)
}

// PostAccept sends data form-encoded with the given Accept header and
// returns the decoded body.
func (c *Connection) PostAccept(ctx context.Context, path string, data url.Values, accept string) (*Document, error) {
	resp, err := c.send(ctx, http.MethodPost, path, data, accept)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// Put sends data form-encoded with a PUT and returns the raw response
func (c *Connection) Put(ctx context.Context, path string, data url.Values, accept string) (*Response, error) {
	return c.send(ctx, http.MethodPut, path, data, accept)
}

func (c *Connection) send(ctx context.Context, method, path string, data url.Values, accept string) (*Response, error) {
	return c.do(ctx, method, path, strings.NewReader(data.Encode()), contentTypeForm, accept)
}

// do performs a single request with the session cookies attached
func (c *Connection) do(ctx context.Context, method, path string, body io.Reader, contentType, accept string) (*Response, error) {
	target, err := c.uri.build(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if accept == "" {
		accept = acceptJSON
	}
	req.Header.Set("Accept", accept)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.authenticated {
		for _, cookie := range c.cookies {
			req.AddCookie(cookie)
		}
	}

	requestID := uuid.NewString()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("url", redactURL(target)).
			Msg("YouTrack API request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.lastStatus = resp.StatusCode

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", redactURL(target)).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("YouTrack API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:      method,
			Path:        path,
			StatusCode:  resp.StatusCode,
			Description: statusDescription(resp),
			Body:        string(data),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     statusDescription(resp),
		Header:     resp.Header,
		Cookies:    resp.Cookies(),
		Body:       data,
	}, nil
}
