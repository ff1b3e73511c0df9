package token

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// transport stamps the fixed User-Agent on every request and paces
// requests through a shared limiter.
type transport struct {
	base      http.RoundTripper
	userAgent string
	limiter   *rate.Limiter
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

// newLimiter allows perMinute requests a minute; zero or less disables pacing.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func newHTTPClient(base *http.Client, userAgent string, perMinute int) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &http.Client{
		Transport:     &transport{base: rt, userAgent: userAgent, limiter: newLimiter(perMinute)},
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}
