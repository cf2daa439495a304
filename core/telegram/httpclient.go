package telegram

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/unilinkup/core/telegram/netutil"
)

// Bot API transport tuning.
const (
	dialTimeout     = 5 * time.Second
	keepAlive       = 30 * time.Second
	tlsTimeout      = 5 * time.Second
	idleConnTimeout = 30 * time.Second
	headerTimeout   = 5 * time.Second
	clientTimeout   = 30 * time.Second

	transportRetries = 3
	transportBackoff = 2 * time.Second
)

var errBodyNotReplayable = errors.New("telegram: request body cannot be replayed")

// BuildHTTPClient returns the client used for Bot API calls. pollTimeout is
// the long-poll window; header and client deadlines are pushed past it so a
// held getUpdates request is not cut short.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	pollTimeout = max(pollTimeout, 0)
	respTimeout := headerTimeout + pollTimeout

	return &http.Client{
		Timeout: max(clientTimeout, respTimeout+headerTimeout),
		Transport: &retryTransport{
			base: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       idleConnTimeout,
				TLSHandshakeTimeout:   tlsTimeout,
				ResponseHeaderTimeout: respTimeout,
				ExpectContinueTimeout: time.Second,
			},
			retries: transportRetries,
			backoff: transportBackoff,
		},
	}
}

// retryTransport repeats requests that failed at the network level with a
// linear backoff. Requests whose body cannot be rewound are tried once.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for n := 1; err != nil && n <= t.retries && netutil.ShouldRetry(err); n++ {
		if werr := sleepCtx(req, t.backoff*time.Duration(n)); werr != nil {
			return nil, werr
		}
		retry, rerr := rewind(req)
		if rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		resp, err = t.base.RoundTrip(retry)
	}
	return resp, err
}

func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func sleepCtx(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
