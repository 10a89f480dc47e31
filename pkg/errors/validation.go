package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidateParamName validates a query parameter or credential name.
// Names are concatenated into request URLs verbatim, so anything that would
// change the shape of the query string is rejected.
func ValidateParamName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "name %q contains whitespace or control characters", name)
		}
	}
	if strings.ContainsAny(name, "&=?#") {
		return New(ErrCodeInvalidInput, "name %q contains reserved query characters", name)
	}
	return nil
}

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw string) error {
	if raw == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", raw)
	}
	return nil
}
