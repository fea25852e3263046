package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/user"
)

// Envelope is the API's response body: the payload under "data", pagination under "meta".
type Envelope[T any] struct {
	Data T             `json:"data"`
	Meta *listing.Meta `json:"meta,omitempty"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken string           `json:"accessToken"`
	User        user.User        `json:"user"`
	Institution core.Institution `json:"institution"`
}

// NewRequest builds a request for the API path p, with body encoded as JSON when not nil.
func (c *Client) NewRequest(ctx context.Context, method, p string, query url.Values, body interface{}) (*http.Request, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(p, query), rdr)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// DoJSON sends req and decodes the response body into out, unless out is nil.
func (c *Client) DoJSON(req *http.Request, out interface{}) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decoding %s %s response", req.Method, req.URL.Path)
}

func (c *Client) sendJSON(ctx context.Context, method, p string, query url.Values, in, out interface{}) error {
	req, err := c.NewRequest(ctx, method, p, query, in)
	if err != nil {
		return err
	}
	return c.DoJSON(req, out)
}

func (c *Client) GetJSON(ctx context.Context, p string, query url.Values, out interface{}) error {
	return c.sendJSON(ctx, http.MethodGet, p, query, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, p string, in, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPost, p, nil, in, out)
}

func (c *Client) PutJSON(ctx context.Context, p string, in, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPut, p, nil, in, out)
}

func (c *Client) DeleteJSON(ctx context.Context, p string, query url.Values, out interface{}) error {
	return c.sendJSON(ctx, http.MethodDelete, p, query, nil, out)
}

// Login validates the credentials, logs in and begins the session.
func (c *Client) Login(ctx context.Context, cr user.Credentials) (*LoginResult, error) {
	if err := cr.Validate(); err != nil {
		return nil, err
	}
	var res Envelope[LoginResult]
	if err := c.PostJSON(ctx, c.opts.LoginPath, cr, &res); err != nil {
		return nil, err
	}
	if res.Data.AccessToken == "" {
		return nil, errors.New("login response carries no access token")
	}
	if err := c.sess.Begin(res.Data.AccessToken, res.Data.Institution); err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// Logout ends the session on the API and locally; the local session is cleared even if the API call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.PostJSON(ctx, c.opts.LogoutPath, nil, nil)
	if IsSessionExpired(err) {
		err = nil
	}
	if tErr := c.sess.Teardown(); tErr != nil && err == nil {
		err = tErr
	}
	return err
}
