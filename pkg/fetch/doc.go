// Package fetch issues HTTP GET requests against a JSON web API and retries
// until the API reports success.
//
// # Overview
//
// A [Fetcher] distinguishes three kinds of failure:
//
//   - Transport errors (DNS, connection refused, timeouts): waited out with a
//     fixed backoff and retried without consuming a try. By default there is
//     no upper bound; cancel the context or set [WithMaxTransportRetries].
//   - HTTP errors (status other than 200): consume one try.
//   - API errors (a JSON body whose "status" field is not "OK"): consume one try.
//
// After every completed HTTP exchange the fetcher waits for the configured
// delay before deciding what to do next, which keeps it under the provider's
// rate limits even on success.
//
// # Quota gating
//
// With [WithGate], the gate is consulted at the top of every loop iteration,
// transport retries included. When it refuses, Get stops immediately and
// returns the sentinel result (status 999, "Place Tracker Query Exceeded")
// with an error matching [ErrQuotaExceeded]:
//
//	tracker := quota.New(quota.NewFileStore("PlacesTracker.txt"))
//	f := fetch.New(fetch.WithGate(tracker), fetch.WithMaxTries(5))
//	res, err := f.Get(ctx, url)
//	if errors.Is(err, fetch.ErrQuotaExceeded) {
//	    // stop for today
//	}
//
// # Exhaustion
//
// When every try is used without success, Get returns the values of the last
// attempt with a nil error. Check [Result.OK] to tell success from
// exhaustion.
package fetch
