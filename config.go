package fchat

import "time"

// Default connection parameters.
const (
	// DefaultEndpoint is the production chat server websocket URL.
	DefaultEndpoint = "wss://chat.f-list.net/chat2"

	// DefaultDialTimeout bounds the websocket open including the HTTP
	// upgrade round trip.
	DefaultDialTimeout = 30 * time.Second

	// DefaultClientName and DefaultClientVersion identify this client in
	// the IDN handshake.
	DefaultClientName    = "go-fchat"
	DefaultClientVersion = "0.1.0"

	// DefaultStatusRetryAttempts is how many times SetStatus retries on the
	// server's status update throttle before giving up.
	DefaultStatusRetryAttempts = 8

	// DefaultStatusRetryDelay is the fixed backoff between throttled
	// status update attempts.
	DefaultStatusRetryDelay = 1 * time.Second
)

// ClientConfig holds per-connection parameters. Zero values fall back to
// the package defaults at connect time.
type ClientConfig struct {
	// Endpoint is the websocket URL of the chat server.
	Endpoint string

	// ClientName and ClientVersion are reported in the IDN handshake.
	ClientName    string
	ClientVersion string

	// DialTimeout bounds the websocket open.
	DialTimeout time.Duration

	// StatusRetryAttempts and StatusRetryDelay tune the throttle recovery
	// in SetStatus.
	StatusRetryAttempts int
	StatusRetryDelay    time.Duration
}

// DefaultClientConfig returns the default connection parameters.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:            DefaultEndpoint,
		ClientName:          DefaultClientName,
		ClientVersion:       DefaultClientVersion,
		DialTimeout:         DefaultDialTimeout,
		StatusRetryAttempts: DefaultStatusRetryAttempts,
		StatusRetryDelay:    DefaultStatusRetryDelay,
	}
}

// withDefaults fills unset fields from the package defaults.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ClientName == "" {
		c.ClientName = DefaultClientName
	}
	if c.ClientVersion == "" {
		c.ClientVersion = DefaultClientVersion
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.StatusRetryAttempts <= 0 {
		c.StatusRetryAttempts = DefaultStatusRetryAttempts
	}
	if c.StatusRetryDelay <= 0 {
		c.StatusRetryDelay = DefaultStatusRetryDelay
	}
	return c
}
