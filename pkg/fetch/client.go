package fetch

import (
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/logo-crawler/pkg/config"
)

const defaultMaxRedirects = 10

// NewClient builds the shared crawler http.Client from cfg. Zero values keep net/http defaults;
// redirects are followed up to MaxRedirects hops (10 when unset).
func NewClient(cfg config.HTTPClientConfig, log *logrus.Entry) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialerTimeout,
		KeepAlive: cfg.DialerKeepAlive,
	}

	forceHTTP2 := true
	if cfg.ForceAttemptHTTP2 != nil {
		forceHTTP2 = *cfg.ForceAttemptHTTP2
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      forceHTTP2,
		MaxIdleConns:           cfg.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.IdleConnTimeout,
		TLSHandshakeTimeout:    cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout:  cfg.ExpectContinueTimeout,
		MaxResponseHeaderBytes: 1 << 20,
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}

	log.WithFields(logrus.Fields{
		"timeout":       cfg.Timeout,
		"max_redirects": maxRedirects,
		"http2":         forceHTTP2,
	}).Debug("HTTP client ready")

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			log.Debugf("Redirect %s -> %s", via[len(via)-1].URL, req.URL)
			return nil
		},
	}
}
