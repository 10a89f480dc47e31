package fetch

import (
	"encoding/json"
	"errors"
	"net/http"
)

// StatusOK is the API-level status of a successful response.
const StatusOK = "OK"

// Sentinel values returned when a gate refuses a request.
const (
	QuotaExceededStatus = 999
	QuotaExceededText   = "Place Tracker Query Exceeded"
)

// ErrQuotaExceeded is wrapped by the error Get returns when its gate refuses.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Result holds the outcome of the last attempt made by [Fetcher.Get].
type Result struct {
	HTTPStatus int            // -1 if no response was received
	APIStatus  string         // "status" field of the last decoded body
	Payload    map[string]any // last decoded body
	Tries      int            // attempts that received an HTTP response
}

// OK reports whether the last attempt succeeded at both the HTTP and API level.
func (r Result) OK() bool {
	return r.HTTPStatus == http.StatusOK && r.APIStatus == StatusOK
}

// Decode converts the payload into v, typically a pointer to a response struct.
func (r Result) Decode(v any) error {
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func quotaExceeded(tries int) Result {
	return Result{
		HTTPStatus: QuotaExceededStatus,
		APIStatus:  QuotaExceededText,
		Payload:    map[string]any{},
		Tries:      tries,
	}
}
