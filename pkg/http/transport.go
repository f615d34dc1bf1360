package http

import "net/http"

type TransportFunc func(http.RoundTripper) http.RoundTripper

// headerTransport sets a fixed header on every outbound request unless the
// caller already set it.
type headerTransport struct {
	key       string
	value     string
	transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.value == "" || req.Header.Get(t.key) != "" {
		return t.transport.RoundTrip(req)
	}

	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set(t.key, t.value)
	return t.transport.RoundTrip(reqCopy)
}

func WithAuthToken(token string) HttpOpts {
	value := ""
	if token != "" {
		value = "Bearer " + token
	}
	return withHeaderTransport("Authorization", value)
}

func WithUserAgent(agent string) HttpOpts {
	return withHeaderTransport("User-Agent", agent)
}

func withHeaderTransport(key, value string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{
			key:       key,
			value:     value,
			transport: rt,
		}
	})
}
