package bookingapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/tablesearch/internal/domain/reservation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pathLogin         = "/loginAnonymously"
	pathSearchToken   = "/search_token"
	pathSearchRequest = "/search_request"

	tokenHeader = "token"
)

// Client talks to the booking platform's anonymous search API.
// It is safe for concurrent use.
type Client struct {
	hc      *http.Client
	base    string
	timeout time.Duration
	limiter *rate.Limiter
	log     *zap.Logger
}

var _ reservation.SearchAPI = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		hc:   &http.Client{},
		base: strings.TrimRight(baseURL, "/"),
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.hc
		hc.Timeout = c.timeout
		c.hc = &hc
	}
	c.log = c.log.Named("bookingapi")
	return c
}

// LoginAnonymously obtains a short-lived token without user identity.
func (c *Client) LoginAnonymously(ctx context.Context) (string, error) {
	var out struct {
		JWTToken string `json:"jwt_token"`
	}
	if err := c.post(ctx, pathLogin, "", nil, &out); err != nil {
		return "", err
	}
	return out.JWTToken, nil
}

// SearchToken submits criteria and returns the search id for paging.
func (c *Client) SearchToken(ctx context.Context, token string, req reservation.SearchRequest) (string, error) {
	var out struct {
		SearchID string `json:"search_id"`
	}
	if err := c.post(ctx, pathSearchToken, token, req, &out); err != nil {
		return "", err
	}
	return out.SearchID, nil
}

// SearchRequest fetches the next page for searchID.
func (c *Client) SearchRequest(ctx context.Context, token, searchID string) (reservation.Page, error) {
	body := struct {
		SearchID string `json:"search_id"`
	}{SearchID: searchID}

	var page reservation.Page
	if err := c.post(ctx, pathSearchRequest, token, body, &page); err != nil {
		return reservation.Page{}, err
	}
	return page, nil
}

func (c *Client) post(ctx context.Context, path, token string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		payload = b
	}

	status, body, err := c.do(ctx, http.MethodPost, path, token, payload)
	if err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	if status < 200 || status >= 300 {
		return NewAPIError(path, status, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Endpoint: path, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("path", path), zap.Error(err))
		return 0, nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	c.log.Debug("request done",
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)))
	return res.StatusCode, b, nil
}
