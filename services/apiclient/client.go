// Package apiclient is the console's HTTP client for the masomo API. It authenticates
// requests with the session token, keeps the token current and recovers from an expired
// token with a single refresh and retry.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/session"
)

const (
	authHeader = "Authorization"
	refreshKey = "refresh"
)

type Client struct {
	base      *url.URL
	http      *http.Client
	sess      *session.Context
	log       core.Logger
	opts      Options
	refreshes singleflight.Group
}

// New returns a Client for the API at opts.BaseURL, authenticated by sess.
func New(sess *session.Context, opts Options) (*Client, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing base URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid base URL %q", opts.BaseURL)
	}
	opts.setDefaults()

	var hc http.Client
	if opts.HTTPClient != nil {
		hc = *opts.HTTPClient
	} else {
		hc.Timeout = opts.Timeout
	}
	if hc.Jar == nil {
		// holds the HttpOnly refresh cookie
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.Wrap(err, "creating cookie jar")
		}
		hc.Jar = jar
	}

	return &Client{
		base: base,
		http: &hc,
		sess: sess,
		log:  opts.Logger,
		opts: opts,
	}, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Context {
	return c.sess
}

// URL resolves p against the base URL.
func (c *Client) URL(p string, query url.Values) string {
	u := *c.base
	u.Path = path.Join("/", c.base.Path, p)
	u.RawQuery = query.Encode()
	return u.String()
}

// Do sends req with the stored token attached.
//
// A successful response is returned with its body buffered. When the API answers with the
// expired token error, the token is refreshed once and req is retried once with the new
// token; the retry's outcome is final. If the refresh fails the session is torn down, the
// navigator is sent to the login route and ErrSessionExpired is returned. Any other
// non-2xx response is returned as a *ResponseError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := rewindable(req); err != nil {
		return nil, err
	}
	if req.Header.Get(authHeader) == "" {
		if token, ok := c.sess.Token(); ok {
			req.Header.Set(authHeader, token)
		}
	}

	c.observe(req, "", StateSent)
	resp, err := c.send(req)
	if err != nil {
		c.observe(req, StateSent, StateFailed)
		return nil, err
	}
	if resp.ok() {
		c.rotate(req, resp)
		c.observe(req, StateSent, StateDone)
		return resp.Response, nil
	}

	rErr := newResponseError(resp)
	if !rErr.IsExpiredToken() || c.isTokenEndpoint(req) {
		c.observe(req, StateSent, StateFailed)
		return nil, rErr
	}

	c.observe(req, StateSent, StateRefreshing)
	token, err := c.refresh(req.Context())
	if err != nil {
		c.observe(req, StateRefreshing, StateFailed)
		if IsSessionExpired(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "refreshing token")
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		if retry.Body, err = req.GetBody(); err != nil {
			c.observe(req, StateRefreshing, StateFailed)
			return nil, errors.Wrap(err, "rewinding request body")
		}
	}
	retry.Header.Set(authHeader, token)

	c.observe(retry, StateRefreshing, StateRetried)
	resp, err = c.send(retry)
	if err != nil {
		c.observe(retry, StateRetried, StateFailed)
		return nil, err
	}
	if !resp.ok() {
		c.observe(retry, StateRetried, StateFailed)
		return nil, newResponseError(resp)
	}
	c.rotate(retry, resp)
	c.observe(retry, StateRetried, StateDone)
	return resp.Response, nil
}

type response struct {
	*http.Response
	body []byte
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (c *Client) send(req *http.Request) (*response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s %s response", req.Method, req.URL.Path)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return &response{Response: resp, body: body}, nil
}

// rewindable buffers the request body so that it can be sent again.
func rewindable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return errors.Wrap(err, "buffering request body")
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func (c *Client) observe(req *http.Request, from, to State) {
	if c.opts.Observer != nil {
		c.opts.Observer(req, from, to)
	}
}

func (c *Client) isTokenEndpoint(req *http.Request) bool {
	p := req.URL.Path
	return p == path.Join("/", c.base.Path, c.opts.LoginPath) || p == path.Join("/", c.base.Path, c.opts.RefreshPath)
}

// tokenEnvelope is the only response shape a token is read from: {"data": {"accessToken": "<token>"}}.
type tokenEnvelope struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

func accessToken(resp *response) (string, bool) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.HasSuffix(mediaType, "json") {
			return "", false
		}
	}
	var env tokenEnvelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return "", false
	}
	token := strings.TrimSpace(env.Data.AccessToken)
	return token, token != ""
}

func (c *Client) rotate(req *http.Request, resp *response) {
	if c.opts.Rotation == RotateOnTokenEndpoints && !c.isTokenEndpoint(req) {
		return
	}
	token, ok := accessToken(resp)
	if !ok {
		return
	}
	if err := c.sess.Rotate(token); err != nil {
		c.log.Error("storing rotated token", err)
	}
}

// refresh obtains a new token and returns the stored Authorization value.
// A failed refresh expires the session and yields ErrSessionExpired; callers
// sharing a refresh share its expiry too.
func (c *Client) refresh(ctx context.Context) (string, error) {
	if c.opts.Refresh == RefreshPerRequest {
		return c.refreshOrExpire(ctx)
	}

	// the shared call must not be cancelled by the first caller giving up
	ch := c.refreshes.DoChan(refreshKey, func() (interface{}, error) {
		return c.refreshOrExpire(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refreshOrExpire(ctx context.Context) (string, error) {
	token, err := c.doRefresh(ctx)
	if err == nil {
		return token, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	c.expire(err)
	return "", ErrSessionExpired
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(c.opts.RefreshPath, nil), http.NoBody)
	if err != nil {
		return "", errors.Wrap(err, "creating refresh request")
	}
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", newResponseError(resp)
	}
	token, ok := accessToken(resp)
	if !ok {
		return "", errors.New("refresh response carries no access token")
	}
	if err := c.sess.Rotate(token); err != nil {
		return "", err
	}
	return session.Bearer(token), nil
}

func (c *Client) expire(cause error) {
	c.log.Warn("token refresh failed, ending session", cause)
	if err := c.sess.Teardown(); err != nil {
		c.log.Error("tearing down session", err)
	}
	if c.opts.Navigator != nil {
		c.opts.Navigator.Navigate(c.opts.LoginRoute)
	}
}
