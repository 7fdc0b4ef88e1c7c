package telegram

import (
	"net"
	"net/http"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/pharmtutor/core/config"
	"github.com/m3rciful/pharmtutor/core/telegram/netutil"
)

const (
	defaultPollTimeout = 10 * time.Second
	transportRetries   = 3
	transportBackoff   = 2 * time.Second
)

func pollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultPollTimeout
}

// newPoller returns the webhook listener or the long poller, per run mode.
func newPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: pollTimeout(cfg)}
}

// newHTTPClient builds the Bot API client. getUpdates holds the response
// for up to poll, so header and overall timeouts leave room for it.
func newHTTPClient(poll time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: poll + 5*time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   poll + 20*time.Second,
		Transport: &retryTransport{base: transport, retries: transportRetries, backoff: transportBackoff},
	}
}

// retryTransport repeats requests that failed in the network layer. Requests
// whose body cannot be replayed are tried once.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	replayable := req.Body == nil || req.GetBody != nil
	for n := 1; ; n++ {
		attempt := req
		if n > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attempt = req.Clone(req.Context())
			attempt.Body = body
		}
		resp, err := t.base.RoundTrip(attempt)
		if err == nil {
			return resp, nil
		}
		delay, retry := netutil.Backoff(err, n, t.backoff)
		if !retry || !replayable || n > t.retries {
			return nil, err
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}
