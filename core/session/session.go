// Package session holds the console's credential state: the bearer token, the login
// timestamp and the cached institution metadata, persisted in a Storage.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
)

// Storage keys. Teardown clears all of them together.
const (
	KeyAccessToken      = "access_token"
	KeyLoginTimestamp   = "login_timestamp"
	KeyInstitutionCode  = "institution_code"
	KeyInstitutionName  = "institution_name"
	KeyInstitutionEmail = "institution_email"
)

// BearerPrefix is prepended to tokens before they are stored.
const BearerPrefix = "Bearer "

// Keys lists every key owned by the session.
var Keys = []string{KeyAccessToken, KeyLoginTimestamp, KeyInstitutionCode, KeyInstitutionName, KeyInstitutionEmail}

var NowFunc = time.Now // mockable

// Storage is a persistent string key-value store.
type Storage interface {
	Get(key string) (string, bool)
	Set(values map[string]string) error
	Remove(keys ...string) error
}

// Context is the process-wide session. The token only changes through Begin, Rotate and Teardown.
type Context struct {
	mu    sync.RWMutex
	store Storage
}

// Open reads the session persisted in store.
func Open(store Storage) *Context {
	return &Context{store: store}
}

// Token returns the stored Authorization value, "Bearer " prefix included.
func (c *Context) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.store.Get(KeyAccessToken)
	return tok, ok && tok != ""
}

func (c *Context) IsAuthenticated() bool {
	_, ok := c.Token()
	return ok
}

// LoggedInAt returns the login timestamp; zero if there is no session.
func (c *Context) LoggedInAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, ok := c.store.Get(KeyLoginTimestamp)
	if !ok {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (c *Context) Institution() core.Institution {
	c.mu.RLock()
	defer c.mu.RUnlock()
	code, _ := c.store.Get(KeyInstitutionCode)
	name, _ := c.store.Get(KeyInstitutionName)
	email, _ := c.store.Get(KeyInstitutionEmail)
	return core.Institution{Code: code, Name: name, Email: email}
}

// Begin starts a session after a successful login.
func (c *Context) Begin(token string, inst core.Institution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.store.Set(map[string]string{
		KeyAccessToken:      Bearer(token),
		KeyLoginTimestamp:   NowFunc().UTC().Format(time.RFC3339),
		KeyInstitutionCode:  inst.Code,
		KeyInstitutionName:  inst.Name,
		KeyInstitutionEmail: inst.Email,
	})
	return errors.Wrap(err, "storing session")
}

// Rotate replaces the stored token, last writer wins.
func (c *Context) Rotate(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.store.Set(map[string]string{KeyAccessToken: Bearer(token)})
	return errors.Wrap(err, "storing token")
}

// Teardown clears every session key.
func (c *Context) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Wrap(c.store.Remove(Keys...), "clearing session")
}

// Bearer returns token as an Authorization value.
func Bearer(token string) string {
	if strings.HasPrefix(token, BearerPrefix) {
		return token
	}
	return BearerPrefix + token
}
