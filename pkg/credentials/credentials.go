// Package credentials loads API keys from a flat name:secret file.
//
// Each line of a key file holds one credential, split on the first colon:
//
//	GoogleMapsDistanceMatrix: xxxxxxxxxxxxxxxxxxxxxxxx
//	GoogleMapsGeocoding: xxxxxxxxxxxxxxxxxxxxxxxx
//	GooglePlaces: xxxxxxxxxxxxxxxxxxxxxxxx
//
// There is no escaping and no caching: callers load the file once and keep
// the returned [Keys] for the lifetime of the process.
package credentials

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/matzehuels/placeskit/pkg/errors"
)

// Keys maps a credential name to its secret. It is never mutated after
// [Load] or [Parse] return it.
type Keys map[string]string

// Load reads the key file at path.
//
// Returns:
//   - an ErrCodeFileNotFound error if path does not exist
//   - an ErrCodeInvalidFormat error if any non-blank line lacks a colon
func Load(path string) (Keys, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "key file %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads name:secret lines from r. The line terminator (including a
// trailing carriage return) is stripped and surrounding spaces are trimmed
// from both halves. Blank lines are skipped.
func Parse(r io.Reader) (Keys, error) {
	keys := Keys{}
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, secret, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: expected name:secret", n)
		}
		keys[strings.TrimSpace(name)] = strings.TrimSpace(secret)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Get returns the secret stored under name, or an ErrCodeNotFound error.
func (k Keys) Get(name string) (string, error) {
	v, ok := k[name]
	if !ok {
		return "", errors.New(errors.ErrCodeNotFound, "no key named %q", name)
	}
	return v, nil
}

// Names returns the credential names in sorted order.
func (k Keys) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mask hides all but the last four characters of a secret for display.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
