package fchat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// ReconnectInitialDelay is the wait before the first retry.
	ReconnectInitialDelay = 10 * time.Second
	// ReconnectMaxDelay caps the doubling backoff.
	ReconnectMaxDelay = 60 * time.Second
)

// Reconnector re-establishes a chat session after connection loss: dial,
// and on failure wait with a doubling backoff (10s, 20s, 40s, then capped
// at 60s) before trying again. The wait counts down in one-second steps so
// a UI can show "reconnecting in Ns".
//
// A fresh Reconnector dials immediately on its first Run (the initial
// connect). A successful connection primes the backoff at the initial
// interval, so the next Run, which by construction follows a disconnect,
// counts down the full interval before redialing. Run returns the new
// connection, or the context error once the caller gives up, or
// ErrSessionGone once Alive reports the session no longer wants a
// connection.
type Reconnector struct {
	// Config is the dial configuration for each attempt.
	Config ClientConfig
	// Sink receives the events of the connection being established.
	Sink ChatConnectionSink
	// Dialer overrides the transport dialer. Nil means the default
	// websocket dialer.
	Dialer Dialer
	// Alive reports whether the owning session still wants a connection.
	// Checked before every wait and before every dial; nil means always.
	Alive func() bool
	// OnCountdown, if set, is invoked once per second during a backoff
	// wait with the seconds remaining.
	OnCountdown func(secondsRemaining int)

	delay time.Duration

	// sleepSecond waits one countdown step; replaced in tests.
	sleepSecond func(ctx context.Context) error
}

// Run dials until a connection is established or the caller gives up.
func (r *Reconnector) Run(ctx context.Context) (*Conn, error) {
	if r.sleepSecond == nil {
		r.sleepSecond = func(ctx context.Context) error {
			select {
			case <-time.After(time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	for {
		if !r.alive() {
			return nil, ErrSessionGone
		}

		if r.delay > 0 {
			log.Debug().Dur("delay", r.delay).Msg("waiting before reconnect attempt")
			if err := r.wait(ctx); err != nil {
				return nil, err
			}
			if !r.alive() {
				return nil, ErrSessionGone
			}
		}

		conn, err := r.dial(ctx)
		if err == nil {
			// Prime the backoff for the run that follows the next
			// disconnect: redialing a dropped session waits the full
			// initial interval before its first attempt.
			r.delay = ReconnectInitialDelay
			return conn, nil
		}
		if ctx.Err() != nil {
			// Cancellation, not a server failure.
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Msg("reconnect attempt failed")

		if r.delay == 0 {
			r.delay = ReconnectInitialDelay
		} else {
			r.delay *= 2
			if r.delay > ReconnectMaxDelay {
				r.delay = ReconnectMaxDelay
			}
		}
	}
}

// wait sleeps the current backoff delay in one-second steps, reporting the
// countdown after each step.
func (r *Reconnector) wait(ctx context.Context) error {
	remaining := int(r.delay / time.Second)
	for remaining > 0 {
		if err := r.sleepSecond(ctx); err != nil {
			return err
		}
		remaining--
		if r.OnCountdown != nil {
			r.OnCountdown(remaining)
		}
	}
	return nil
}

func (r *Reconnector) dial(ctx context.Context) (*Conn, error) {
	if r.Dialer != nil {
		return ConnectWithDialer(ctx, r.Config, r.Sink, r.Dialer)
	}
	return Connect(ctx, r.Config, r.Sink)
}

func (r *Reconnector) alive() bool {
	return r.Alive == nil || r.Alive()
}
