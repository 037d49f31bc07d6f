// SPDX-License-Identifier: MIT

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/V-i-c-ky/AutoWallpaper/internal/metrics"
)

// DefaultTimeout bounds connect and read per attempt, not shared across
// attempts.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns a client with a symmetric connect/read bound
// applied per attempt.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Deps holds the engine's injected capabilities. Zero fields get defaults.
type Deps struct {
	Client *http.Client
	Writer Writer
	Sleep  SleepFunc
	Logger zerolog.Logger
}

// Engine runs a single download to terminal success or failure. It owns no
// persisted state; each Fetch call is purely transactional.
type Engine struct {
	client *http.Client
	writer Writer
	sleep  SleepFunc
	logger zerolog.Logger
}

// New creates an Engine, filling in defaults for unset dependencies.
func New(deps Deps) *Engine {
	e := &Engine{
		client: deps.Client,
		writer: deps.Writer,
		sleep:  deps.Sleep,
		logger: deps.Logger,
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: DefaultTimeout}
	}
	if e.writer == nil {
		e.writer = AtomicWriter{}
	}
	if e.sleep == nil {
		e.sleep = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return e
}

// Fetch downloads req.URL to req.Destination, retrying per the classifier
// and backoff policy. Intermediate failures are logged but invisible to the
// caller; only the terminal outcome is returned.
func (e *Engine) Fetch(ctx context.Context, req Request) error {
	if req.MaxAttempts < 1 {
		return fmt.Errorf("%w (got %d)", ErrNoAttempts, req.MaxAttempts)
	}

	base := req.BaseDelay
	if base < time.Second {
		base = time.Second
	}

	var last Outcome
	// attempt is 0-based for the backoff exponent; user-facing logging is
	// 1-based.
	for attempt := 0; attempt < req.MaxAttempts; attempt++ {
		out := e.attempt(ctx, req)
		if out == nil {
			metrics.IncFetchAttempt("success")
			e.logger.Info().
				Str("event", "fetch.success").
				Str("url", req.URL).
				Int("attempt", attempt+1).
				Msg("downloaded")
			return nil
		}
		last = *out

		metrics.IncFetchAttempt("failure")
		metrics.IncFetchFailure(out.Class.String())
		e.logger.Warn().
			Str("event", "fetch.attempt_failed").
			Str("url", req.URL).
			Int("attempt", attempt+1).
			Int("max_attempts", req.MaxAttempts).
			Str("class", out.Class.String()).
			Int("status", out.Status).
			Err(out.Err).
			Msg("attempt failed")

		if !out.Retryable {
			return &TerminalError{Sentinel: ErrAborted, Class: out.Class, Status: out.Status, Attempts: attempt + 1, Err: out.Err}
		}
		if attempt+1 == req.MaxAttempts {
			break
		}

		d := Decide(out.Class, base, attempt)
		if d.Stop {
			e.logger.Warn().
				Str("event", "fetch.cap_reached").
				Str("url", req.URL).
				Dur("cap", SleepCap).
				Msg("backoff reached cap for HTTP status retries, stopping")
			return &TerminalError{Sentinel: ErrCoolDown, Class: out.Class, Status: out.Status, Attempts: attempt + 1, Err: out.Err}
		}

		e.logger.Info().
			Str("event", "fetch.waiting").
			Str("url", req.URL).
			Dur("sleep", d.Sleep).
			Int("attempt", attempt+1).
			Int("max_attempts", req.MaxAttempts).
			Msg("waiting before next attempt")
		metrics.AddFetchSleep(d.Sleep.Seconds())
		if err := e.sleep(ctx, d.Sleep); err != nil {
			return fmt.Errorf("retry wait interrupted: %w", err)
		}
	}

	e.logger.Error().
		Str("event", "fetch.exhausted").
		Str("url", req.URL).
		Int("attempts", req.MaxAttempts).
		Msg("all attempts failed")
	return &TerminalError{Sentinel: ErrExhausted, Class: last.Class, Status: last.Status, Attempts: req.MaxAttempts, Err: last.Err}
}

// attempt performs one transfer. A nil return means the payload was fully
// received and published; otherwise the classified failure is returned.
func (e *Engine) attempt(ctx context.Context, req Request) *Outcome {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		out := ClassifyTransfer(err)
		return &out
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		out := ClassifyTransfer(err)
		return &out
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out := ClassifyTransfer(&StatusError{Code: resp.StatusCode})
		return &out
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		// Body reads can fail transiently even after a 2xx.
		out := Outcome{Class: ClassLocalIO, Retryable: true, Err: fmt.Errorf("read response body: %w", err)}
		return &out
	}

	if err := e.writer.Publish(req.Destination, data); err != nil {
		// A received payload that fails to persist re-enters the retry loop
		// like any other transient failure.
		out := ClassifyWrite(err)
		return &out
	}
	return nil
}
