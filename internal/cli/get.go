package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/matzehuels/placeskit/pkg/buildinfo"
	"github.com/matzehuels/placeskit/pkg/errors"
	"github.com/matzehuels/placeskit/pkg/fetch"
	"github.com/matzehuels/placeskit/pkg/observability"
	"github.com/matzehuels/placeskit/pkg/query"
)

// getOptions holds flags for the get command.
type getOptions struct {
	params              []string
	headers             []string
	keyName             string
	noKey               bool
	pickKey             bool
	raw                 bool
	useQuota            bool
	maxTries            int
	delay               time.Duration
	transportBackoff    time.Duration
	maxTransportRetries int
	places              bool
	field               string
	quiet               bool
}

// getCommand creates the get command.
func (c *CLI) getCommand() *cobra.Command {
	var opts getOptions

	cmd := &cobra.Command{
		Use:   "get <url> [url...]",
		Short: "Fetch JSON from a places API endpoint with retries",
		Long: `Fetch JSON from a places API endpoint, retrying until the response
carries "status": "OK" or the tries run out.

Query parameters given with -p are appended to each URL in order, followed by
the API key named by --key-name (or key_name in the config). Values are
URL-escaped unless --raw is set.

With --quota every attempt is counted against the daily quota first and the
command stops once the ceiling is reached.`,
		Example: `  # Nearby search, printing the raw payload
  placeskit get https://maps.googleapis.com/maps/api/place/nearbysearch/json \
    -p location=-33.8670522,151.1957362 -p radius=500 -p keyword=coffee --quota

  # Show results as a table
  placeskit get <url> -p query="pizza in new york" --places

  # Extract one field with a gjson path
  placeskit get <url> -p query=museum --field 'results.#.name'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyFetchDefaults(cmd, &opts)
			return c.runGet(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "query parameter as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")
	cmd.Flags().StringVar(&opts.keyName, "key-name", "", "credential to use (default from config)")
	cmd.Flags().BoolVar(&opts.noKey, "no-key", false, "do not append an API key")
	cmd.Flags().BoolVar(&opts.pickKey, "pick-key", false, "choose the credential interactively")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "do not URL-escape parameter values")
	cmd.Flags().BoolVar(&opts.useQuota, "quota", false, "count attempts against the daily quota")
	cmd.Flags().IntVar(&opts.maxTries, "max-tries", 0, "attempts per URL (default from config)")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "pause after each response (default from config)")
	cmd.Flags().DurationVar(&opts.transportBackoff, "transport-backoff", 0, "pause after a connection failure (default from config)")
	cmd.Flags().IntVar(&opts.maxTransportRetries, "max-transport-retries", 0, "give up after this many consecutive connection failures, 0 = never")
	cmd.Flags().BoolVar(&opts.places, "places", false, "print results as a places table")
	cmd.Flags().StringVar(&opts.field, "field", "", "print only this gjson path of the payload")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "show a spinner instead of per-try logs")

	cmd.MarkFlagsMutuallyExclusive("places", "field")
	cmd.MarkFlagsMutuallyExclusive("no-key", "pick-key")
	cmd.MarkFlagsMutuallyExclusive("no-key", "key-name")

	return cmd
}

// applyFetchDefaults fills unset flags from the loaded config.
func (c *CLI) applyFetchDefaults(cmd *cobra.Command, opts *getOptions) {
	fc := c.cfg.Fetch
	flags := cmd.Flags()
	if !flags.Changed("max-tries") {
		opts.maxTries = fc.MaxTries
	}
	if !flags.Changed("delay") {
		opts.delay = fc.Delay.Duration
	}
	if !flags.Changed("transport-backoff") {
		opts.transportBackoff = fc.TransportBackoff.Duration
	}
	if !flags.Changed("max-transport-retries") {
		opts.maxTransportRetries = fc.MaxTransportRetries
	}
	if !flags.Changed("key-name") {
		opts.keyName = c.cfg.KeyName
	}
}

func (c *CLI) runGet(ctx context.Context, urls []string, opts getOptions) error {
	for _, u := range urls {
		if err := errors.ValidateURL(u); err != nil {
			return err
		}
	}

	params, err := parseParams(opts.params, !opts.raw)
	if err != nil {
		return err
	}
	if !opts.noKey {
		secret, err := c.resolveKey(opts)
		if err != nil {
			return err
		}
		params = params.Set(c.cfg.KeyParam, secret)
	}
	headers, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}

	if addr := c.cfg.Metrics.Addr; addr != "" {
		stop, err := c.startMetrics(addr)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer stop()
	}

	fetchOpts := []fetch.Option{
		fetch.WithMaxTries(opts.maxTries),
		fetch.WithDelay(opts.delay),
		fetch.WithTransportBackoff(opts.transportBackoff),
		fetch.WithMaxTransportRetries(opts.maxTransportRetries),
		fetch.WithHTTPClient(&http.Client{Timeout: c.cfg.Fetch.Timeout.Duration}),
		fetch.WithHeaders(headers),
		fetch.WithLogger(c.Logger.WithPrefix("fetch")),
		fetch.WithProgress(!opts.quiet),
	}
	if opts.useQuota {
		tracker, err := c.newTracker(ctx)
		if err != nil {
			return fmt.Errorf("open quota: %w", err)
		}
		defer tracker.Close()
		fetchOpts = append(fetchOpts, fetch.WithGate(tracker))
	}
	f := fetch.New(fetchOpts...)

	for _, base := range urls {
		if err := c.fetchOne(ctx, f, query.URL(base, params), opts); err != nil {
			return err
		}
	}
	return nil
}

func (c *CLI) fetchOne(ctx context.Context, f *fetch.Fetcher, url string, opts getOptions) error {
	host := hostOf(url)
	prog := newProgress(c.Logger)

	if opts.quiet {
		s := newSpinner(ctx, "Fetching "+host)
		s.Start()
		restore := watchAttempts(s)
		defer func() {
			restore()
			s.Stop()
		}()
	}

	res, err := f.Get(ctx, url)
	if err != nil {
		if errors.Is(err, errors.ErrCodeQuotaExceeded) {
			printWarning("Daily quota of %d requests reached", c.cfg.Quota.Limit)
			printDetail("%d tries made before the refusal", res.Tries)
		}
		return err
	}
	if !res.OK() {
		return giveUpError(res)
	}
	prog.done("Fetched %s in %d tries", host, res.Tries)
	return printResult(res, opts)
}

// printResult writes the payload in the format selected by the flags.
func printResult(res fetch.Result, opts getOptions) error {
	switch {
	case opts.places:
		places, err := res.Places()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidResponse, err, "decode places")
		}
		if len(places.Results) == 0 {
			printInfo("No results")
			return nil
		}
		printRaw(placesTable(places))
		if places.NextPageToken != "" {
			printDetail("More results: -p pagetoken=%s", places.NextPageToken)
		}
		return nil

	case opts.field != "":
		data, err := json.Marshal(res.Payload)
		if err != nil {
			return err
		}
		v := gjson.GetBytes(data, opts.field)
		if !v.Exists() {
			return errors.New(errors.ErrCodeNotFound, "field %q not in response", opts.field)
		}
		if v.Type == gjson.String {
			printRaw(v.String())
		} else {
			printRaw(v.Raw)
		}
		return nil

	default:
		data, err := json.MarshalIndent(res.Payload, "", "  ")
		if err != nil {
			return err
		}
		printRaw(string(data))
		return nil
	}
}

// giveUpError describes a fetch that ran out of tries.
func giveUpError(res fetch.Result) error {
	if res.HTTPStatus != http.StatusOK {
		return errors.New(errors.ErrCodeHTTPStatus, "gave up after %d tries: HTTP %d", res.Tries, res.HTTPStatus)
	}
	msg, _ := res.Payload["error_message"].(string)
	if msg != "" {
		return errors.New(errors.ErrCodeAPIStatus, "gave up after %d tries: %s: %s", res.Tries, res.APIStatus, msg)
	}
	return errors.New(errors.ErrCodeAPIStatus, "gave up after %d tries: %s", res.Tries, res.APIStatus)
}

// resolveKey returns the secret for the selected credential.
func (c *CLI) resolveKey(opts getOptions) (string, error) {
	keys, err := c.loadKeys()
	if err != nil {
		return "", fmt.Errorf("load keys: %w", err)
	}
	name := opts.keyName
	if opts.pickKey {
		name, err = pickKey(keys, name)
		if err != nil {
			return "", err
		}
		if name == "" {
			return "", context.Canceled
		}
	}
	return keys.Get(name)
}

// parseParams turns name=value flags into ordered query parameters.
func parseParams(raw []string, escape bool) (query.Params, error) {
	var params query.Params
	for _, p := range raw {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "parameter %q: expected name=value", p)
		}
		if err := errors.ValidateParamName(name); err != nil {
			return nil, err
		}
		if escape {
			value = query.Escape(value)
		}
		params = params.Add(name, value)
	}
	return params, nil
}

// parseHeaders turns "Name: value" flags into a header map and adds the
// default User-Agent.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := map[string]string{"User-Agent": buildinfo.UserAgent()}
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "header %q: expected 'Name: value'", h)
		}
		headers[http.CanonicalHeaderKey(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return headers, nil
}

// spinnerHooks mirrors fetch progress onto a spinner and forwards every
// event to the hooks that were installed before it.
type spinnerHooks struct {
	observability.FetchHooks
	s *Spinner
}

func (h spinnerHooks) OnAttempt(ctx context.Context, host string, try, code int, apiStatus string, d time.Duration) {
	h.FetchHooks.OnAttempt(ctx, host, try, code, apiStatus, d)
	label := apiStatus
	if label == "" {
		label = fmt.Sprintf("HTTP %d", code)
	}
	h.s.Update("Fetching %s (try %d: %s)", host, try, label)
}

func (h spinnerHooks) OnTransportError(ctx context.Context, host string, err error) {
	h.FetchHooks.OnTransportError(ctx, host, err)
	h.s.Update("Fetching %s (connection failed, waiting)", host)
}

// watchAttempts routes fetch events to s until the returned func is called.
func watchAttempts(s *Spinner) (restore func()) {
	prev := observability.Fetch()
	observability.SetFetchHooks(spinnerHooks{FetchHooks: prev, s: s})
	return func() { observability.SetFetchHooks(prev) }
}

func hostOf(rawURL string) string {
	rest := rawURL
	if _, after, ok := strings.Cut(rawURL, "://"); ok {
		rest = after
	}
	host, _, _ := strings.Cut(rest, "/")
	host, _, _ = strings.Cut(host, "?")
	return host
}
