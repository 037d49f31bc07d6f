// SPDX-License-Identifier: MIT

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepRecorder captures requested sleeps without actually blocking.
type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

func newTestEngine(t *testing.T, client *http.Client, w Writer) (*Engine, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	return New(Deps{
		Client: client,
		Writer: w,
		Sleep:  rec.sleep,
		Logger: zerolog.Nop(),
	}), rec
}

func TestFetch_ZeroAttemptsRefused(t *testing.T) {
	e, rec := newTestEngine(t, nil, nil)

	err := e.Fetch(context.Background(), Request{URL: "http://example.invalid", Destination: "x", MaxAttempts: 0})
	require.ErrorIs(t, err, ErrNoAttempts)
	assert.Empty(t, rec.slept, "no attempt, no sleep")
}

func TestFetch_SuccessFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.jpg")
	e, rec := newTestEngine(t, srv.Client(), nil)

	err := e.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, MaxAttempts: 3, BaseDelay: 2 * time.Second})
	require.NoError(t, err)
	assert.Empty(t, rec.slept)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), got)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.jpg")
	e, rec := newTestEngine(t, srv.Client(), nil)

	err := e.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, MaxAttempts: 5, BaseDelay: time.Second})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, rec.slept)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetch_TerminalStatusStopsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.jpg")
	e, rec := newTestEngine(t, srv.Client(), nil)

	err := e.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, MaxAttempts: 10, BaseDelay: time.Second})
	require.ErrorIs(t, err, ErrAborted)

	var term *TerminalError
	require.ErrorAs(t, err, &term)
	assert.Equal(t, ClassHTTPStatus, term.Class)
	assert.Equal(t, http.StatusNotFound, term.Status)
	assert.Equal(t, 1, term.Attempts)

	assert.Empty(t, rec.slept)
	assert.NoFileExists(t, dest)
}

// TestFetch_ExhaustedAfterRetryable503 is the reference end-to-end retry
// scenario: max_attempts=3, base=2s, three 503s. Exactly two sleeps (2s,
// 4s), terminal failure, no artifact written.
func TestFetch_ExhaustedAfterRetryable503(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.jpg")
	e, rec := newTestEngine(t, srv.Client(), nil)

	err := e.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, MaxAttempts: 3, BaseDelay: 2 * time.Second})
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.slept)
	assert.EqualValues(t, 3, calls.Load())
	assert.NoFileExists(t, dest)
}

// TestFetch_CapStopsHTTPStatusRetries is the reference cap scenario:
// max_attempts=5, base=30s, sustained 500s. One 30s sleep, then the
// uncapped backoff hits the 60s cap and the engine stops with attempt
// budget remaining.
func TestFetch_CapStopsHTTPStatusRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.jpg")
	e, rec := newTestEngine(t, srv.Client(), nil)

	err := e.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, MaxAttempts: 5, BaseDelay: 30 * time.Second})
	require.ErrorIs(t, err, ErrCoolDown)
	assert.Equal(t, []time.Duration{30 * time.Second}, rec.slept, "exactly one sleep before the cap is reached")
	assert.EqualValues(t, 2, calls.Load())
}

// TestFetch_TransportKeepsRetryingAtCap mirrors the previous scenario with
// transport failures: the cap merely clamps the sleep and the attempt
// budget is used up in full.
func TestFetch_TransportKeepsRetryingAtCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	dest := filepath.Join(t.TempDir(), "out.jpg")
	e, rec := newTestEngine(t, &http.Client{Timeout: time.Second}, nil)

	err := e.Fetch(context.Background(), Request{URL: url, Destination: dest, MaxAttempts: 3, BaseDelay: 60 * time.Second})
	require.ErrorIs(t, err, ErrExhausted)

	var term *TerminalError
	require.ErrorAs(t, err, &term)
	assert.Equal(t, ClassTransport, term.Class)

	assert.Equal(t, []time.Duration{SleepCap, SleepCap}, rec.slept, "sleeps stay clamped to the cap")
}

// flakyWriter fails a fixed number of Publish calls before delegating.
type flakyWriter struct {
	failures int
	err      error
	calls    int
}

func (w *flakyWriter) Publish(path string, data []byte) error {
	w.calls++
	if w.calls <= w.failures {
		return w.err
	}
	return AtomicWriter{}.Publish(path, data)
}

func TestFetch_TransientWriteFailureRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.jpg")
	writer := &flakyWriter{failures: 1, err: fmt.Errorf("write temp file: %w", syscall.EINTR)}
	e, rec := newTestEngine(t, srv.Client(), writer)

	err := e.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, MaxAttempts: 3, BaseDelay: time.Second})
	require.NoError(t, err, "a transient write failure must not be a permanent fetch failure")
	assert.Equal(t, []time.Duration{time.Second}, rec.slept)
	assert.Equal(t, 2, writer.calls)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestFetch_TerminalWriteFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.jpg")
	writer := &flakyWriter{failures: 99, err: fmt.Errorf("write temp file: %w", syscall.ENOSPC)}
	e, rec := newTestEngine(t, srv.Client(), writer)

	err := e.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, MaxAttempts: 5, BaseDelay: time.Second})
	require.ErrorIs(t, err, ErrAborted)

	var term *TerminalError
	require.ErrorAs(t, err, &term)
	assert.Equal(t, ClassLocalIO, term.Class)
	assert.Empty(t, rec.slept)
}

func TestFetch_SleepInterruptedByContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	e := New(Deps{
		Client: srv.Client(),
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
		Logger: zerolog.Nop(),
	})

	err := e.Fetch(ctx, Request{URL: srv.URL, Destination: filepath.Join(t.TempDir(), "x"), MaxAttempts: 3, BaseDelay: time.Second})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
