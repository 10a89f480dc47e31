package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/matzehuels/placeskit/pkg/errors"
	"github.com/matzehuels/placeskit/pkg/observability"
)

// Defaults for a new Fetcher.
const (
	DefaultMaxTries         = 5
	DefaultDelay            = 5 * time.Second
	DefaultTransportBackoff = 10 * time.Second
	DefaultTimeout          = 30 * time.Second
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 32 << 20

// Gate decides whether another request may be sent. Allow is called once per
// loop iteration and may have side effects, such as counting the request.
type Gate interface {
	Allow(ctx context.Context) (bool, error)
}

// Fetcher performs GET requests with bounded application-level retries and
// patient transport-level retries. A Fetcher holds no per-call state and may
// be reused; calls are not meant to run concurrently against one gate.
type Fetcher struct {
	http                *http.Client
	headers             map[string]string
	maxTries            int
	delay               time.Duration
	transportBackoff    time.Duration
	maxTransportRetries int
	progress            bool
	gate                Gate
	logger              *log.Logger

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxTries sets how many completed HTTP exchanges Get may use.
func WithMaxTries(n int) Option {
	return func(f *Fetcher) { f.maxTries = n }
}

// WithDelay sets the pause after each completed HTTP exchange.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.delay = d }
}

// WithTransportBackoff sets the pause after a transport error.
func WithTransportBackoff(d time.Duration) Option {
	return func(f *Fetcher) { f.transportBackoff = d }
}

// WithMaxTransportRetries bounds consecutive transport errors. Zero, the
// default, retries until the context is done.
func WithMaxTransportRetries(n int) Option {
	return func(f *Fetcher) { f.maxTransportRetries = n }
}

// WithProgress toggles the per-attempt "Try: n" log line.
func WithProgress(on bool) Option {
	return func(f *Fetcher) { f.progress = on }
}

// WithGate consults g before every attempt.
func WithGate(g Gate) Option {
	return func(f *Fetcher) { f.gate = g }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.http = c
		}
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(h map[string]string) Option {
	return func(f *Fetcher) { f.headers = h }
}

// WithLogger sets the logger for progress and error reports.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher with the package defaults: 5 tries, 5s delay,
// 10s transport backoff, unbounded transport retries, progress on, no gate.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		http:             &http.Client{Timeout: DefaultTimeout},
		maxTries:         DefaultMaxTries,
		delay:            DefaultDelay,
		transportBackoff: DefaultTransportBackoff,
		progress:         true,
		logger:           log.New(io.Discard),
		sleep:            sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get requests rawURL until the API reports "OK", the tries run out, the gate
// refuses, or ctx is done.
//
// Returns:
//   - (result, nil) on success, and also when tries run out; check [Result.OK]
//   - (sentinel result, error wrapping [ErrQuotaExceeded]) when the gate refuses
//   - (result so far, gate error) when the gate itself fails
//   - (result so far, ErrCodeNetwork error) after too many consecutive
//     transport errors, if bounded with [WithMaxTransportRetries]
//   - (result so far, ctx error) on cancellation; deadline expiry carries
//     ErrCodeTimeout
//   - (result, ErrCodeInvalidResponse error) when the final attempt returned
//     200 with a body that is not a JSON object with a string "status"
func (f *Fetcher) Get(ctx context.Context, rawURL string) (Result, error) {
	host := hostOf(rawURL)
	logger := f.logger.With("req", uuid.NewString()[:8], "host", host)
	hooks := observability.Fetch()

	res := Result{HTTPStatus: -1}
	var invalid error
	transportFailures := 0

	for res.Tries < f.maxTries {
		if f.gate != nil {
			ok, err := f.gate.Allow(ctx)
			if err != nil {
				return res, err
			}
			if !ok {
				logger.Warn("request refused by quota", "tries", res.Tries)
				hooks.OnComplete(ctx, host, res.Tries, false)
				return quotaExceeded(res.Tries), errors.Wrap(errors.ErrCodeQuotaExceeded, ErrQuotaExceeded, "%s after %d tries", host, res.Tries)
			}
		}

		start := time.Now()
		status, body, err := f.do(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return res, contextError(ctx.Err(), host)
			}
			transportFailures++
			hooks.OnTransportError(ctx, host, err)
			logger.Error("request failed", "err", err, "failures", transportFailures)
			if f.maxTransportRetries > 0 && transportFailures >= f.maxTransportRetries {
				return res, errors.Wrap(errors.ErrCodeNetwork, err, "%s: %d consecutive transport failures", host, transportFailures)
			}
			if err := f.sleep(ctx, f.transportBackoff); err != nil {
				return res, contextError(err, host)
			}
			continue
		}
		elapsed := time.Since(start)
		transportFailures = 0

		if f.progress {
			logger.Infof("Try: %d", res.Tries+1)
		}
		if err := f.sleep(ctx, f.delay); err != nil {
			return res, contextError(err, host)
		}
		res.Tries++
		res.HTTPStatus = status
		invalid = nil

		if status != http.StatusOK {
			hooks.OnAttempt(ctx, host, res.Tries, status, "", elapsed)
			logger.Debug("unexpected HTTP status", "status", status, "try", res.Tries)
			continue
		}

		apiStatus, payload, err := decode(body)
		if err != nil {
			invalid = err
			hooks.OnAttempt(ctx, host, res.Tries, status, "", elapsed)
			logger.Debug("unusable response body", "err", err, "try", res.Tries)
			continue
		}
		res.APIStatus = apiStatus
		res.Payload = payload
		hooks.OnAttempt(ctx, host, res.Tries, status, apiStatus, elapsed)

		if apiStatus != StatusOK {
			logger.Debug("API returned an error status", "status", apiStatus, "try", res.Tries)
			continue
		}
		hooks.OnComplete(ctx, host, res.Tries, true)
		return res, nil
	}

	hooks.OnComplete(ctx, host, res.Tries, false)
	if res.Tries > 0 {
		logger.Warn("giving up", "tries", res.Tries, "status", res.HTTPStatus, "api_status", res.APIStatus)
	}
	return res, invalid
}

// do performs one GET. Any error is a transport error; the body is fully read
// so that a connection dropped mid-body is retried like any other.
func (f *Fetcher) do(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// decode validates that body is a JSON object with a string "status" field
// and returns that status along with the decoded object.
func decode(body []byte) (string, map[string]any, error) {
	if !gjson.ValidBytes(body) {
		return "", nil, errors.New(errors.ErrCodeInvalidResponse, "response body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return "", nil, errors.New(errors.ErrCodeInvalidResponse, "response body is not a JSON object")
	}
	status := root.Get("status")
	if !status.Exists() {
		return "", nil, errors.New(errors.ErrCodeInvalidResponse, "response has no status field")
	}
	if status.Type != gjson.String {
		return "", nil, errors.New(errors.ErrCodeInvalidResponse, "response status is %s, not a string", status.Type)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeInvalidResponse, err, "decode response")
	}
	return status.String(), payload, nil
}

func contextError(err error, host string) error {
	if err == context.DeadlineExceeded {
		return errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s", host)
	}
	return fmt.Errorf("fetch %s: %w", host, err)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
