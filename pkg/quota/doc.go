// Package quota tracks daily request usage against a fixed ceiling.
//
// # Overview
//
// A [Tracker] counts every request made to a metered API and refuses further
// requests once the count for the current day reaches the ceiling
// ([DefaultLimit], 150,000 by default). Days are local calendar dates in
// YYYYMMDD form.
//
// # Stores
//
// Counts are persisted through a [Store]:
//
//   - [FileStore]: the PlacesTracker.txt format, one tab-separated line per day
//     under a header. Only the last line is ever rewritten. Concurrent
//     processes are serialised with an advisory lock on "<file>.lock" and the
//     file is replaced atomically.
//   - [RedisStore]: one INCR counter per day, for trackers shared across hosts.
//
// # Boundary
//
// [Tracker.Allow] increments first and then compares. The call that moves the
// count to 149,999 proceeds; the call that moves it to 150,000 is refused and
// so is every later call that day, each of which still increments the stored
// count.
//
// # Usage
//
//	store := quota.NewFileStore("PlacesTracker.txt")
//	tracker := quota.New(store, quota.WithLogger(logger))
//	ok, err := tracker.Allow(ctx)
package quota
