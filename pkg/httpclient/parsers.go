package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// parseRetryAfter reads the standard Retry-After header, which may be
// either a number of seconds or an HTTP-date.
func parseRetryAfter(h http.Header) *time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d > 0 {
			return &d
		}
	}
	return nil
}
