package resilience

import (
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/backend-printhub/internal/obs"
)

// transport decorates a RoundTripper with breaker checks and latency
// metrics. 5xx responses count as failures.
type transport struct {
	next    http.RoundTripper
	breaker *Breaker
	name    string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.breaker.Allow() {
		return nil, fmt.Errorf("%s: %w", t.name, ErrOpen)
	}
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	outcome := err
	result := "ok"
	if err != nil {
		result = "error"
	} else if resp.StatusCode >= 500 {
		result = "upstream_error"
		outcome = fmt.Errorf("%s: upstream status %d", t.name, resp.StatusCode)
	}
	t.breaker.Record(outcome)
	if obs.GatewayRequestDuration != nil {
		obs.GatewayRequestDuration.WithLabelValues(t.name, result).Observe(obs.DurationMillis(time.Since(start)))
	}
	return resp, err
}

// WrapClient returns a copy of client whose transport is guarded by the
// breaker. A nil client starts from http.DefaultClient settings.
func WrapClient(client *http.Client, breaker *Breaker, name string) *http.Client {
	wrapped := &http.Client{}
	if client != nil {
		*wrapped = *client
	}
	next := wrapped.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped.Transport = &transport{next: next, breaker: breaker, name: name}
	return wrapped
}
