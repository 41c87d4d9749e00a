package httpx

import (
    "net"
    "net/http"
    "time"
)

// Client is a small wrapper around http.Client with sane defaults. It satisfies
// the HTTPClient interface of the upstream clients.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string
}

// New builds a client. A zero timeout leaves outbound calls unbounded except
// for the transport's dial/TLS/header limits.
func New(timeout time.Duration) *Client {
    transport := &http.Transport{
        Proxy: http.ProxyFromEnvironment,
        DialContext: (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          20,
        MaxIdleConnsPerHost:   10,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   3 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
        ResponseHeaderTimeout: 10 * time.Second,
    }
    return &Client{
        HTTP:      &http.Client{Timeout: timeout, Transport: transport},
        UserAgent: "stockdata/1.0",
        Headers:   map[string]string{"Accept": "application/json"},
    }
}

// Do fills in the default headers the request does not already carry.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    hc := c.HTTP
    if hc == nil { hc = http.DefaultClient }
    return hc.Do(req)
}
