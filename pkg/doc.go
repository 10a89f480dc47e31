// Package pkg provides the libraries behind placeskit, a helper layer for
// calling a places/geolocation web API reliably.
//
// # Overview
//
//  1. [credentials] - load name:secret API keys from a text file
//  2. [query] - assemble ordered query strings
//  3. [quota] - count requests per day against a ceiling (file or Redis)
//  4. [fetch] - GET with application-level retries and an optional quota gate
//  5. [config], [errors], [observability], [buildinfo] - shared plumbing
//
// # Quick Start
//
//	keys, err := credentials.Load("keys.txt")
//	if err != nil {
//	    return err
//	}
//	secret, err := keys.Get("GooglePlaces")
//	if err != nil {
//	    return err
//	}
//
//	params := query.Params{}.
//	    Add("location", query.Escape("-33.8670522,151.1957362")).
//	    Add("radius", "500").
//	    Add("key", secret)
//	url := query.URL("https://maps.googleapis.com/maps/api/place/nearbysearch/json", params)
//
//	tracker := quota.New(quota.NewFileStore(quota.DefaultFile))
//	defer tracker.Close()
//
//	f := fetch.New(fetch.WithGate(tracker))
//	res, err := f.Get(ctx, url)
//	switch {
//	case errors.Is(err, fetch.ErrQuotaExceeded):
//	    // stop for today
//	case err != nil:
//	    return err
//	case !res.OK():
//	    // tries ran out; res holds the last attempt
//	}
//
// [credentials]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/credentials
// [query]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/query
// [quota]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/quota
// [fetch]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/fetch
// [config]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/placeskit/pkg/buildinfo
package pkg
