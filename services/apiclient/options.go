package apiclient

import (
	"net/http"
	"time"

	"github.com/trezcool/masomo-console/core"
)

// RotationPolicy decides which successful responses may replace the stored token.
type RotationPolicy int

const (
	// RotateOnTokenEndpoints only rotates from the login and refresh endpoints.
	RotateOnTokenEndpoints RotationPolicy = iota
	// RotateOnAnyResponse rotates from any successful response carrying the token envelope.
	RotateOnAnyResponse
)

// RefreshMode decides how concurrent expired requests refresh the token.
type RefreshMode int

const (
	// ShareRefresh makes concurrent expired requests wait on a single refresh call.
	ShareRefresh RefreshMode = iota
	// RefreshPerRequest lets every expired request refresh on its own; the last stored token wins.
	RefreshPerRequest
)

// State is the per-request lifecycle state reported to an Observer.
type State string

const (
	StateSent       State = "SENT"
	StateRefreshing State = "REFRESHING"
	StateRetried    State = "RETRIED"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Observer is notified of every state transition of a request.
type Observer func(req *http.Request, from, to State)

// Navigator sends the operator to a route, e.g. the login screen.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

type Options struct {
	BaseURL     string
	RefreshPath string
	LoginPath   string
	LogoutPath  string
	LoginRoute  string
	Timeout     time.Duration

	Rotation RotationPolicy
	Refresh  RefreshMode

	HTTPClient *http.Client // optional; a cookie jar is added when missing
	Navigator  Navigator    // optional
	Observer   Observer     // optional
	Logger     core.Logger
}

// OptionsFromConfig maps the client configuration to Options.
func OptionsFromConfig(conf core.ClientConfig) Options {
	return Options{
		BaseURL:     conf.APIBaseURL,
		RefreshPath: conf.RefreshPath,
		LoginPath:   conf.LoginPath,
		LogoutPath:  conf.LogoutPath,
		LoginRoute:  conf.LoginRoute,
		Timeout:     conf.Timeout,
	}
}

func (o *Options) setDefaults() {
	if o.RefreshPath == "" {
		o.RefreshPath = "/v1/auth/refresh"
	}
	if o.LoginPath == "" {
		o.LoginPath = "/v1/auth/login"
	}
	if o.LogoutPath == "" {
		o.LogoutPath = "/v1/auth/logout"
	}
	if o.LoginRoute == "" {
		o.LoginRoute = "/login"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}
